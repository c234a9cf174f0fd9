package dto

import (
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/feature/report/usecase"
)

// LedgerEntryResponse は台帳の1行を表すDTOです。
type LedgerEntryResponse struct {
	SourceDate  string `json:"source_date"`  // 処理済みのソース日付
	ProcessedOn string `json:"processed_on"` // 処理した日（YYYYMMDD）
}

// NewLedgerResponse converts entries in stored order. The result is never nil.
func NewLedgerResponse(entries []entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			SourceDate:  entity.FormatDate(e.SourceDate),
			ProcessedOn: e.ProcessedOn.Format(usecase.ProcessedOnLayout),
		})
	}
	return out
}

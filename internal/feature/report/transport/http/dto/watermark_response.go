package dto

import (
	"xetra_etl/internal/feature/report/domain/entity"
)

// WatermarkResponse は抽出計画のレスポンスDTOです。
type WatermarkResponse struct {
	EffectiveStartDate string   `json:"effective_start_date"` // 集計対象の開始日
	DatesToExtract     []string `json:"dates_to_extract"`     // 抽出する日付（昇順）
	Pending            bool     `json:"pending"`              // 未処理の日付があるか
}

// NewWatermarkResponse converts w. Dates are rendered as YYYY-MM-DD and the
// list is never null.
func NewWatermarkResponse(w entity.Watermark) WatermarkResponse {
	dates := make([]string, 0, len(w.Dates))
	for _, d := range w.Dates {
		dates = append(dates, entity.FormatDate(d))
	}
	return WatermarkResponse{
		EffectiveStartDate: entity.FormatDate(w.EffectiveStart),
		DatesToExtract:     dates,
		Pending:            w.Pending(),
	}
}

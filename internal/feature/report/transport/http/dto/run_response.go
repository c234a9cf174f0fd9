package dto

import (
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/feature/report/usecase"
)

// RunResponse はパイプライン実行結果のレスポンスDTOです。
type RunResponse struct {
	RunID         string            `json:"run_id"`
	State         string            `json:"state"`
	Watermark     WatermarkResponse `json:"watermark"`
	ReportKey     string            `json:"report_key,omitempty"` // 書き込んだレポートのキー
	Rows          int               `json:"rows"`
	RecordedDates []string          `json:"recorded_dates"`
	DurationMS    int64             `json:"duration_ms"`
	Error         string            `json:"error,omitempty"` // 失敗時のみ
}

// NewRunResponse converts r. err, when non-nil, is reported in Error.
func NewRunResponse(r *usecase.RunResult, err error) RunResponse {
	recorded := make([]string, 0, len(r.RecordedDates))
	for _, d := range r.RecordedDates {
		recorded = append(recorded, entity.FormatDate(d))
	}
	out := RunResponse{
		RunID:         r.RunID,
		State:         string(r.State),
		Watermark:     NewWatermarkResponse(r.Watermark),
		ReportKey:     r.ReportKey,
		Rows:          r.Rows,
		RecordedDates: recorded,
		DurationMS:    r.Duration.Milliseconds(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// Package handler はreportフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/feature/report/transport/http/dto"
	"xetra_etl/internal/feature/report/usecase"
)

// ReportUsecase はレポート実行のユースケースインターフェースを定義します。
// インターフェースは利用者（handler）側で定義します。
type ReportUsecase interface {
	Plan(ctx context.Context) (entity.Watermark, error)
	Run(ctx context.Context) (*usecase.RunResult, error)
}

// ReportHandler は抽出計画の参照とパイプライン実行のHTTPリクエストを処理します。
type ReportHandler struct {
	uc ReportUsecase
}

// NewReportHandler は指定されたusecaseでReportHandlerを生成します。
func NewReportHandler(uc ReportUsecase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Watermark は次回実行の抽出計画を返します。台帳は変更しません。
//
// エンドポイント例:
// GET /watermark
func (h *ReportHandler) Watermark(c *gin.Context) {
	w, err := h.uc.Plan(c.Request.Context())
	if err != nil {
		c.JSON(statusOf(err), dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewWatermarkResponse(w))
}

// Run はパイプラインを1回実行し、その結果を返します。
//
// エンドポイント例:
// POST /runs
func (h *ReportHandler) Run(c *gin.Context) {
	res, err := h.uc.Run(c.Request.Context())
	if err != nil {
		if res == nil {
			c.JSON(statusOf(err), dto.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(statusOf(err), dto.NewRunResponse(res, err))
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(res, nil))
}

// statusOf maps a usecase error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case usecase.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

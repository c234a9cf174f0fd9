// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	reporthandler "xetra_etl/internal/feature/report/transport/handler"
	platformhandler "xetra_etl/internal/platform/http/handler"
	jwtmw "xetra_etl/internal/platform/jwt"
)

// Deps holds what the router mounts.
type Deps struct {
	Report *reporthandler.ReportHandler
	// Metrics serves /metrics; nil leaves the route unmounted.
	Metrics http.Handler
	Probes  []platformhandler.Probe
	// JWTSecret verifies operator tokens on mutating routes.
	JWTSecret   string
	CORSOrigins []string
	Log         *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(d.Log))

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: d.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.Match([]string{http.MethodGet, http.MethodHead, http.MethodOptions}, "/healthz", platformhandler.Health(d.Probes...))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	// 抽出計画の参照（台帳は変更しない）
	r.GET("/watermark", d.Report.Watermark)

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(d.JWTSecret))
	{
		auth.POST("/runs", d.Report.Run)
	}

	return r
}

// accessLog logs one line per request through log.
func accessLog(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

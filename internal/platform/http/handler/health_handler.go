// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// probeTimeout bounds each dependency check.
const probeTimeout = 2 * time.Second

// Probe は依存先（オブジェクトストア、Redisなど）の疎通確認です。
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを返します。
// すべてのプローブが成功すれば200、1つでも失敗すれば503を返し、キャッシュを防止します。
func Health(probes ...Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		status := http.StatusOK
		checks := make(map[string]string, len(probes))
		for _, p := range probes {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			err := p.Check(ctx)
			cancel()
			if err != nil {
				checks[p.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[p.Name] = "ok"
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}

		body := gin.H{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(checks) > 0 {
			body["checks"] = checks
		}
		c.JSON(status, body)
	}
}

// Command server exposes the report pipeline over HTTP (/healthz, /metrics,
// /watermark and the authenticated POST /runs).
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"xetra_etl/internal/app/di"
	"xetra_etl/internal/platform/config"
	"xetra_etl/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML job configuration")
	flag.Parse()

	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}
	lg, logCloser, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := di.Build(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			lg.Error("failed to close resources", "error", err)
		}
	}()

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.Env.JWTSecret == "" {
		lg.Warn("JWT_SECRET is not set. POST /runs will reject every request.")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: app.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Package usecase は日次レポートETL（ウォーターマーク台帳・集計・パイプライン）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"time"

	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/tabular"
)

// StorageGateway はキー・バリュー型オブジェクトストアへのテーブル入出力を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type StorageGateway interface {
	// List は prefix で始まるキーを昇順で返します。一致がなくてもエラーにはなりません。
	List(ctx context.Context, prefix string) ([]string, error)
	// ReadTable はキーのテーブルを読み込みます。存在しない場合は domain.ErrNotFound を返します。
	ReadTable(ctx context.Context, key string) (tabular.Table, error)
	// WriteTable はテーブルを指定フォーマットで書き込みます。
	// csv/parquet 以外は domain.ErrUnsupportedFormat を返し、何も書き込みません。
	WriteTable(ctx context.Context, t tabular.Table, key string, format tabular.Format) error
}

// Ledger は抽出範囲の計算と処理済み日付の記録を担います。
type Ledger interface {
	Plan(ctx context.Context) (entity.Watermark, error)
	Record(ctx context.Context, dates []time.Time) error
}

// Observer receives pipeline instrumentation. *metrics.Registry implements it.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	SourceObjectRead()
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration) {}
func (noopObserver) SourceObjectRead()                  {}

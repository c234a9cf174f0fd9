package adapters

import (
	"context"
	"errors"
	"fmt"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/usecase"
	"xetra_etl/internal/platform/objectstore"
	"xetra_etl/internal/platform/tabular"
)

// ObjectStore is the raw byte store behind a Bucket.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

// Bucket is a StorageGateway over an ObjectStore. Tables are encoded as CSV
// or Parquet; reads pick the codec from the key's extension.
type Bucket struct {
	name  string
	store ObjectStore
}

var _ usecase.StorageGateway = (*Bucket)(nil)

// NewBucket creates a gateway named name (used in errors) over store.
func NewBucket(name string, store ObjectStore) *Bucket {
	return &Bucket{name: name, store: store}
}

// List returns keys under prefix in ascending order.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := b.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: list %q: %w", b.name, prefix, err)
	}
	return keys, nil
}

// ReadTable reads and decodes the object at key.
func (b *Bucket) ReadTable(ctx context.Context, key string) (tabular.Table, error) {
	format, err := tabular.FormatOfKey(key)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s: read %q: %w", b.name, key, mapErr(err))
	}
	data, err := b.store.Get(ctx, key)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s: read %q: %w", b.name, key, mapErr(err))
	}
	t, err := tabular.Decode(data, format)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("%s: decode %q: %w", b.name, key, mapErr(err))
	}
	return t, nil
}

// WriteTable encodes t as format and stores it at key. Nothing is written
// when the format is unsupported or encoding fails.
func (b *Bucket) WriteTable(ctx context.Context, t tabular.Table, key string, format tabular.Format) error {
	f, err := tabular.ParseFormat(string(format))
	if err != nil {
		return fmt.Errorf("%s: write %q: %w", b.name, key, mapErr(err))
	}
	data, err := tabular.Encode(t, f)
	if err != nil {
		return fmt.Errorf("%s: encode %q: %w", b.name, key, err)
	}
	if err := b.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%s: write %q: %w", b.name, key, err)
	}
	return nil
}

// pingKey is read by Ping; it normally does not exist.
const pingKey = ".healthz"

// Ping checks the store is reachable. A missing ping object counts as healthy.
func (b *Bucket) Ping(ctx context.Context) error {
	_, err := b.store.Get(ctx, pingKey)
	if err == nil || errors.Is(err, objectstore.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%s: %w", b.name, err)
}

// mapErr translates platform errors into domain errors, keeping the original in the chain.
func mapErr(err error) error {
	switch {
	case errors.Is(err, objectstore.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %w", domain.ErrUnsupportedFormat, err)
	default:
		return err
	}
}

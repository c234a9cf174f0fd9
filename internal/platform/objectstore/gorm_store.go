package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTable is the table GormStore uses when none is configured.
const DefaultTable = "objects"

// ObjectModel is the row layout of a stored object.
type ObjectModel struct {
	Key       string    `gorm:"column:object_key;primaryKey;size:1024"`
	Body      []byte    `gorm:"not null"`
	Size      int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ObjectModel) TableName() string {
	return DefaultTable
}

// GormStore stores objects as rows of a SQL table.
type GormStore struct {
	db    *gorm.DB
	table string
	now   func() time.Time
}

// NewGormStore returns a store over table (DefaultTable when empty).
// Call Migrate once before first use on a fresh database.
func NewGormStore(db *gorm.DB, table string) *GormStore {
	if table == "" {
		table = DefaultTable
	}
	return &GormStore{db: db, table: table, now: time.Now}
}

// Migrate creates or updates the object table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&ObjectModel{}); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// List returns the keys starting with prefix, ascending.
func (s *GormStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	q := s.db.WithContext(ctx).Table(s.table).
		Where("object_key LIKE ? ESCAPE ?", escapeLike(prefix)+"%", `\`)
	if prefix != "" {
		// LIKE folds ASCII case on SQLite
		q = q.Where("substr(object_key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	}
	err := q.Order("object_key").Pluck("object_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return keys, nil
}

// Get returns the body stored under key.
func (s *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var m ObjectModel
	err := s.db.WithContext(ctx).Table(s.table).Where("object_key = ?", key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return m.Body, nil
}

// Put stores body under key, replacing any previous object.
func (s *GormStore) Put(ctx context.Context, key string, body []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if body == nil {
		body = []byte{}
	}
	m := ObjectModel{Key: key, Body: body, Size: int64(len(body)), UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "size", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so prefix matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Package config loads the ETL job configuration.
//
// Job settings come from a YAML file (with ${VAR} expansion); connection
// secrets for Redis and JWT come from the environment. Everything is
// validated in a single pass at load time.
package config

import "time"

// Config is the root configuration of the report job.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Target  TargetConfig  `yaml:"target"`
	Meta    MetaConfig    `yaml:"meta"`
	Storage StorageConfig `yaml:"storage"`
	Lock    LockConfig    `yaml:"lock"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`

	// Env holds settings read from the process environment, not from the file.
	Env EnvConfig `yaml:"-"`
}

// SourceConfig names the columns of the raw trade exports.
type SourceConfig struct {
	// FirstExtractDate is the earliest trading day the report covers (YYYY-MM-DD).
	FirstExtractDate string `yaml:"first_extract_date" validate:"required,datetime=2006-01-02"`
	// Columns is the projection applied before any aggregation. It must contain every named column below.
	Columns       []string `yaml:"columns" validate:"required,min=1,dive,required"`
	ColDate       string   `yaml:"col_date" validate:"required"`
	ColISIN       string   `yaml:"col_isin" validate:"required"`
	ColTime       string   `yaml:"col_time" validate:"required"`
	ColStartPrice string   `yaml:"col_start_price" validate:"required"`
	ColMinPrice   string   `yaml:"col_min_price" validate:"required"`
	ColMaxPrice   string   `yaml:"col_max_price" validate:"required"`
	ColTradedVol  string   `yaml:"col_traded_vol" validate:"required"`
}

// FirstExtract returns FirstExtractDate as a date. Call only on a validated config.
func (s SourceConfig) FirstExtract() time.Time {
	t, _ := time.Parse("2006-01-02", s.FirstExtractDate)
	return t
}

// TargetConfig names the report columns and where the report is written.
type TargetConfig struct {
	ColISIN        string `yaml:"col_isin" validate:"required"`
	ColDate        string `yaml:"col_date" validate:"required"`
	ColOpPrice     string `yaml:"col_op_price" validate:"required"`
	ColClosPrice   string `yaml:"col_clos_price" validate:"required"`
	ColMinPrice    string `yaml:"col_min_price" validate:"required"`
	ColMaxPrice    string `yaml:"col_max_price" validate:"required"`
	ColDailTradVol string `yaml:"col_dail_trad_vol" validate:"required"`
	ColChPrevClos  string `yaml:"col_ch_prev_clos" validate:"required"`

	// Key is the base key; the run timestamp and extension are appended.
	Key string `yaml:"key" validate:"required"`
	// KeyDateFormat is a Go time layout for the run timestamp in the key.
	KeyDateFormat string `yaml:"key_date_format" validate:"required"`
	Format        string `yaml:"format" validate:"oneof=csv parquet"`
}

// MetaConfig locates the watermark ledger.
type MetaConfig struct {
	Key string `yaml:"key" validate:"required"`
}

// StorageConfig holds the source (raw exports) and target (report + ledger) stores.
type StorageConfig struct {
	Source StoreConfig `yaml:"source"`
	Target StoreConfig `yaml:"target"`
}

// StoreConfig describes one object store.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=fs sqlite postgres"`
	// Path is the root directory (fs) or database file (sqlite).
	Path string `yaml:"path" validate:"required_unless=Driver postgres"`
	// DSN is the PostgreSQL connection string.
	DSN   string `yaml:"dsn" validate:"required_if=Driver postgres"`
	Table string `yaml:"table"`
	// RequestsPerSecond throttles object reads; 0 disables throttling.
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" validate:"gte=0"`
}

// LockConfig controls the Redis run lock that keeps one run per ledger in flight.
type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gt=0"`
	Prefix  string        `yaml:"prefix" validate:"required"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
	// Output is stdout, stderr, file or both (stdout + file).
	Output string        `yaml:"output" validate:"oneof=stdout stderr file both"`
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig configures the rotating log file used by the file and both outputs.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// CORSOrigins enables CORS for the listed origins. Empty disables CORS.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

// EnvConfig holds secrets and connection settings taken from the environment.
type EnvConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (e EnvConfig) RedisAddr() string {
	if e.RedisHost == "" {
		return ""
	}
	return e.RedisHost + ":" + e.RedisPort
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultKeyDateFormat   = "20060102_150405"
	DefaultTargetFormat    = "csv"
	DefaultStoreDriver     = "fs"
	DefaultStoreTable      = "objects"
	DefaultLockTTL         = 30 * time.Minute
	DefaultLockPrefix      = "xetra_etl:lock"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogOutput       = "stdout"
	DefaultLogMaxSizeMB    = 100
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 15 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Target.KeyDateFormat == "" {
		c.Target.KeyDateFormat = DefaultKeyDateFormat
	}
	if c.Target.Format == "" {
		c.Target.Format = DefaultTargetFormat
	}

	applyStoreDefaults(&c.Storage.Source)
	applyStoreDefaults(&c.Storage.Target)

	if c.Lock.TTL == 0 {
		c.Lock.TTL = DefaultLockTTL
	}
	if c.Lock.Prefix == "" {
		c.Lock.Prefix = DefaultLockPrefix
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
	if c.Logging.File.MaxSizeMB == 0 {
		c.Logging.File.MaxSizeMB = DefaultLogMaxSizeMB
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Driver == "" {
		s.Driver = DefaultStoreDriver
	}
	if s.Table == "" {
		s.Table = DefaultStoreTable
	}
}

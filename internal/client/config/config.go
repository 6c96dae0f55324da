package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Merge strategies.
const (
	MergeLWW    = "lww"
	MergeManual = "manual"
)

// Tie-break rules applied when both sides were edited at the same instant.
const (
	TieBreakRemote   = "remote"
	TieBreakLocal    = "local"
	TieBreakConflict = "conflict"
)

// Config holds runtime settings for the notekeeper client.
type Config struct {
	APIHost             string        `validate:"required,url"`
	DatabasePath        string        `validate:"required"`
	AttachmentsDir      string        `validate:"required"`
	LogFile             string        `validate:"omitempty"`
	OnlineCheckInterval time.Duration `validate:"gt=0"`
	SyncDebounce        time.Duration `validate:"gte=0"`
	SyncDisabled        bool
	MergeStrategy       string        `validate:"oneof=lww manual"`
	TieBreak            string        `validate:"oneof=remote local conflict"`
	DownloadConcurrency int           `validate:"min=1,max=32"`
	SessionTTL          time.Duration `validate:"gt=0"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIHost = "http://127.0.0.1:8080"
	c.DatabasePath = "notekeeper.db"
	c.AttachmentsDir = "attachments"
	c.LogFile = "notekeeper.log"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncDebounce = 500 * time.Millisecond
	c.SyncDisabled = false
	c.MergeStrategy = MergeLWW
	c.TieBreak = TieBreakRemote
	c.DownloadConcurrency = 4
	c.SessionTTL = 24 * time.Hour
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

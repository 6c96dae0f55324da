package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIHost             = "NOTEKEEPER_API_HOST"
	EnvDatabasePath        = "NOTEKEEPER_DATABASE_PATH"
	EnvAttachmentsDir      = "NOTEKEEPER_ATTACHMENTS_DIR"
	EnvLogFile             = "NOTEKEEPER_LOG_FILE"
	EnvSyncDisabled        = "NOTEKEEPER_SYNC_DISABLED"
	EnvSyncDebounce        = "NOTEKEEPER_SYNC_DEBOUNCE"
	EnvMergeStrategy       = "NOTEKEEPER_MERGE_STRATEGY"
	EnvTieBreak            = "NOTEKEEPER_TIE_BREAK"
	EnvDownloadConcurrency = "NOTEKEEPER_DOWNLOAD_CONCURRENCY"
)

// parseEnv loads the optional dotenv file named by -e/-env-file (variables
// already present in the environment win) and overlays NOTEKEEPER_* values.
func parseEnv(cfg *Config) error {
	if path := flagx.EnvFilePath(os.Args[1:]); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv(EnvAPIHost); ok {
		cfg.APIHost = v
	}
	if v, ok := os.LookupEnv(EnvDatabasePath); ok {
		cfg.DatabasePath = v
	}
	if v, ok := os.LookupEnv(EnvAttachmentsDir); ok {
		cfg.AttachmentsDir = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.LogFile = v
	}
	if v, ok := os.LookupEnv(EnvMergeStrategy); ok {
		cfg.MergeStrategy = v
	}
	if v, ok := os.LookupEnv(EnvTieBreak); ok {
		cfg.TieBreak = v
	}
	if v, ok := os.LookupEnv(EnvSyncDisabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSyncDisabled, err)
		}
		cfg.SyncDisabled = b
	}
	if v, ok := os.LookupEnv(EnvSyncDebounce); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSyncDebounce, err)
		}
		cfg.SyncDebounce = d
	}
	if v, ok := os.LookupEnv(EnvDownloadConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDownloadConcurrency, err)
		}
		cfg.DownloadConcurrency = n
	}
	return nil
}

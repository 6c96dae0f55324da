package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-value fields left out of the file keep whatever the defaults set.
type JsonConfig struct {
	APIHost             string          `json:"api_host"`
	DatabasePath        string          `json:"database_path"`
	AttachmentsDir      string          `json:"attachments_dir"`
	LogFile             *string         `json:"log_file"`
	OnlineCheckInterval timex.Duration  `json:"online_check_interval"`
	SyncDebounce        *timex.Duration `json:"sync_debounce"`
	SyncDisabled        *bool           `json:"sync_disabled"`
	MergeStrategy       string          `json:"merge_strategy"`
	TieBreak            string          `json:"tie_break"`
	DownloadConcurrency int             `json:"download_concurrency"`
	SessionTTL          timex.Duration  `json:"session_ttl"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIHost, jc.APIHost)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AttachmentsDir, jc.AttachmentsDir)
	setString(&cfg.MergeStrategy, jc.MergeStrategy)
	setString(&cfg.TieBreak, jc.TieBreak)

	if jc.LogFile != nil {
		cfg.LogFile = *jc.LogFile
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncDebounce != nil {
		cfg.SyncDebounce = jc.SyncDebounce.Duration
	}
	if jc.SyncDisabled != nil {
		cfg.SyncDisabled = *jc.SyncDisabled
	}
	if jc.DownloadConcurrency > 0 {
		cfg.DownloadConcurrency = jc.DownloadConcurrency
	}
	if jc.SessionTTL.Duration > 0 {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

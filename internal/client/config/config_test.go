package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.APIHost)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 500*time.Millisecond, c.SyncDebounce)
	assert.Equal(t, MergeLWW, c.MergeStrategy)
	assert.Equal(t, TieBreakRemote, c.TieBreak)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "bad api host", mutate: func(c *Config) { c.APIHost = "not a url" }},
		{name: "empty database", mutate: func(c *Config) { c.DatabasePath = "" }},
		{name: "unknown strategy", mutate: func(c *Config) { c.MergeStrategy = "ot" }},
		{name: "unknown tie break", mutate: func(c *Config) { c.TieBreak = "coin" }},
		{name: "zero concurrency", mutate: func(c *Config) { c.DownloadConcurrency = 0 }},
		{name: "zero check interval", mutate: func(c *Config) { c.OnlineCheckInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.APIHost)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	jsonPath := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"api_host":       "http://from-json:1",
		"merge_strategy": "manual",
		"database_path":  "json.db",
	})
	t.Setenv(EnvAPIHost, "http://from-env:2")

	os.Args = []string{"testbin", "-c", jsonPath, "-d", "flag.db"}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:2", cfg.APIHost)
	assert.Equal(t, MergeManual, cfg.MergeStrategy)
	assert.Equal(t, "flag.db", cfg.DatabasePath)
}

func TestLoadConfig_InvalidResultRejected(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-merge", "crdt"}

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

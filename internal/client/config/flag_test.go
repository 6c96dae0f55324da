package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "host and interval", args: []string{"cmd", "-a", "http://127.0.0.1:9090", "-i", "10"},
			expected: &Config{APIHost: "http://127.0.0.1:9090", OnlineCheckInterval: 10 * time.Second}},
		{name: "offline and merge", args: []string{"cmd", "-merge=manual", "-offline", "-d", "x.db"},
			expected: &Config{DatabasePath: "x.db", MergeStrategy: MergeManual, SyncDisabled: true}},
		{name: "incorrect check interval", args: []string{"cmd", "-a", "127.0.0.1:9090", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

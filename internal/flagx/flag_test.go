package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	valued := []string{"c", "config", "a"}

	tests := []struct {
		name     string
		args     []string
		switches []string
		want     []string
	}{
		{
			name: "separate value",
			args: []string{"-c", "conf.json", "-x", "1"},
			want: []string{"-c", "conf.json"},
		},
		{
			name: "inline value and double dash",
			args: []string{"--config=alt.json", "-a=http://h"},
			want: []string{"--config=alt.json", "-a=http://h"},
		},
		{
			name: "order preserved across forms",
			args: []string{"--config", "one.json", "-c=two.json"},
			want: []string{"--config", "one.json", "-c=two.json"},
		},
		{
			name: "missing value at end",
			args: []string{"-c"},
			want: []string{"-c"},
		},
		{
			name: "next flag is not taken as value",
			args: []string{"-c", "-a", "host"},
			want: []string{"-c", "-a", "host"},
		},
		{
			name:     "switch does not consume positional",
			args:     []string{"-offline", "note.md", "-a", "h"},
			switches: []string{"offline"},
			want:     []string{"-offline", "-a", "h"},
		},
		{
			name: "stops at terminator",
			args: []string{"-a", "h", "--", "-c", "x"},
			want: []string{"-a", "h"},
		},
		{
			name: "lone dashes and positionals ignored",
			args: []string{"-", "positional", "-=x"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, valued, tt.switches...))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "", ConfigPath(nil))
	assert.Equal(t, "a.json", ConfigPath([]string{"-d", "x.db", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-c", "a.json", "--config=b.json"}))
}

func TestEnvFilePath(t *testing.T) {
	assert.Equal(t, ".env.local", EnvFilePath([]string{"-offline", "-env-file", ".env.local"}))
	assert.Equal(t, "", EnvFilePath([]string{"-c", "a.json"}))
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   API host
//	-d string   database path
//	-i int      online check interval in seconds
//	-offline    disable synchronization
//	-merge      merge strategy
//
// Only the flags listed above are taken from os.Args (flagx.FilterArgs), so
// other components can parse their own.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"a", "d", "i", "merge"}, "offline")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIHost, "a", cfg.APIHost, "API host")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to local database")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.BoolVar(&cfg.SyncDisabled, "offline", cfg.SyncDisabled, "disable synchronization")
	fs.StringVar(&cfg.MergeStrategy, "merge", cfg.MergeStrategy, "merge strategy (lww|manual)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

// Package config loads runtime configuration for the notekeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables, optionally seeded from a dotenv file given with
//     -e or -env-file (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// The result is validated with go-playground/validator before it is returned.
//
// Supported flags
//
//	-a string   API host (scheme://host[:port])
//	-d string   path to the local SQLite database
//	-i int      online status check interval (seconds)
//	-offline    disable synchronization
//	-merge      merge strategy: lww or manual
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "api_host": "https://api.example.com",
//	  "database_path": "notekeeper.db",
//	  "attachments_dir": "attachments",
//	  "online_check_interval": "3s",
//	  "sync_debounce": "500ms",
//	  "merge_strategy": "lww",
//	  "tie_break": "remote"
//	}
package config

// Package config loads the tracetail TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tracetail/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or blank, use defaults
//
// # TOML Format
//
//	server_url = "127.0.0.1:10428"
//	account_id = "0"
//	project_id = "0"
//	query = "*"
//
//	[live]
//	capacity = 100
//	flood_batch_size = 200
//	flood_streak = 5
//	overload_tail = 200
//
//	[explore]
//	limit = 50
//	group_by = "_stream"
//	display_fields = "_msg"
//	range = "5m"
//	refresh = "0s"
//	rows_per_page = 50
//	hits_bars = 100
//	hits_fields_limit = 5
//
//	[log]
//	level = "info"
//	format = "console"
//	file = "~/.local/state/tracetail/tracetail.log"
//
// Every field is optional. Durations use time.ParseDuration syntax; an
// unparsable or negative duration is an error rather than a silent default.
// A refresh of 0s fetches the explore view once.
//
// live.capacity and explore.rows_per_page are starting values; once the
// user picks another size in the UI the choice is saved to prefs.toml and
// wins on the next start.
//
// # Path Expansion
//
// The config path and log.file accept "~" and relative paths; both are
// expanded to absolute paths.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Invalid durations
package config

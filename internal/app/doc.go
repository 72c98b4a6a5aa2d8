// Package app is the composition root of tracetail.
//
// # Architecture
//
// Run wires the pieces together and blocks in the UI:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> LoadConfig()          config.toml + CLI overrides
//	       ├─────> logging.Init()        zerolog to the log file
//	       ├─────> prefs.Load()          theme, raw JSON, rows per page
//	       ├─────> vtselect.NewClient()  select API client with tenant headers
//	       ├─────> livetail.NewSession() live tail (started by the UI)
//	       ├─────> StartPoller()         explore view refresh
//	       └─────> ui.Run()              bubbletea program (blocks)
//
// # Explore Poller
//
// The poller fetches the records of the last explore.range and, only when
// that succeeded, the hits histogram for the same window. Both land in a
// state.Store that the Groups view renders from.
//
// With explore.refresh = "0s" the poller refreshes once at startup and then
// only on demand (a new query or the refresh key). With a positive interval
// it refreshes on that cadence. Consecutive failures back off exponentially:
// base·2^failures, capped at 30 seconds.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file unreadable or invalid
//   - Log file cannot be opened
//   - Invalid server URL
//
// Everything that happens while running is recoverable and reported in the
// UI: a failed tail connection leaves the session Errored until it is
// restarted, and a failed explore refresh keeps the previous data.
package app

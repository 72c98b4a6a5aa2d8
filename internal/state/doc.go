// Package state provides thread-safe storage for the explore view data.
//
// # Overview
//
// The explore poller fetches a page of records and the hits histogram for
// the current query; the UI renders the grouped view from the latest
// snapshot. Store is the hand-off point between the two goroutines.
//
//	Producer (poller):             Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ client.Query() │            │                 │
//	│ client.Hits()  │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	└────────────────┘  (mutex)   └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace records and hits
//	store.Update(records, hits, nil)
//
//	// Error: keep the previous records and hits, record the error
//	store.Update(nil, nil, err)
//
// ConsecutiveFailures counts failed updates since the last success;
// Snapshot.IsOffline reports true from the second failure on so the UI can
// tell a transient error from an unreachable server.
//
// Snapshot copies the slices it returns. Records themselves are never
// mutated after decoding, so they are shared rather than deep-copied.
//
// The zero Store is ready to use.
package state

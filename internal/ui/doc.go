// Package ui provides the terminal user interface for tracetail.
//
// The UI is a Bubble Tea program with two views:
//
//   - Live: the rolling buffer of a livetail.Session, newest record at the
//     bottom. Scrolling up pauses the tail; G resumes following.
//   - Groups: the explore query from state.Store, bucketed by the configured
//     group-by field and paged across groups by rows per page.
//
// Session updates arrive through a command that blocks on the session's
// update channel and is rate limited to one re-render per
// LiveRenderInterval. The explore store is re-read every DefaultUIInterval.
//
// Theme, raw JSON mode and row counts are persisted with the prefs package.
package ui

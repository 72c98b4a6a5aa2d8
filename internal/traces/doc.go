// Package traces defines the trace record and group types shared by the
// live-tail and explore views, together with the helpers that turn a flat
// result set into grouped, paginated output.
//
// # Records
//
// A Record is an open mapping from field name to string value, mirroring the
// newline-delimited JSON rows returned by the select API. Records are treated
// as immutable once parsed: slices of records may be copied freely, but the
// maps themselves are never written after ParseLine returns.
//
// Well-known fields have typed accessors:
//
//   - _time: Time (RFC3339Nano)
//   - _msg: Msg
//   - _stream: Stream
//   - _trace_id: ID, the client-side identifier assigned on decode
//
// # Grouping and windowing
//
// GroupBy buckets records by one field and orders the buckets by size.
// Window then selects the rows of a single page out of the virtual
// concatenation of all groups without building that concatenation:
//
//	groups := traces.GroupBy(records, "_stream", !traces.HasSortPipe(query))
//	page := traces.Window(groups, 2, 50) // rows 50..99 across groups
//
// Groups that lie entirely before or after the requested page are never
// sliced, so the cost of Window is proportional to the groups it touches.
package traces

// Package livetail turns the unbounded tail stream of the select API into a
// bounded buffer the UI can render at any throughput.
//
// Data flows one way:
//
//	network bytes -> Decoder.Feed -> []traces.Record -> Buffer.Apply -> Session.Snapshot
//
// Decoder splits chunks into newline-delimited JSON records and carries a
// partial trailing line across reads. Buffer keeps the newest Capacity
// records and detects floods: once more than FloodPolicy.BatchSize records
// arrive in FloodPolicy.Streak consecutive batches, the buffer is marked
// overloaded and each later batch contributes only its newest
// FloodPolicy.Tail records. The flag stays set until Clear.
//
// Session owns one connection at a time and moves through
//
//	Idle -> Connecting -> Streaming <-> Paused -> Stopped
//
// with Errored reachable from any connected state. Pausing keeps the
// connection open and keeps decoding, but drops the records so the visible
// buffer is frozen. Stop cancels the connection with ErrStopped as the cause,
// which keeps self-inflicted failures out of the error field. A clean close
// from the server ends in Stopped with the buffer left as it was.
//
// All buffer mutation happens under the session mutex from the single pump
// goroutine of the current connection or from the caller's control methods.
package livetail

package livetail

import (
	"sync"

	"github.com/five82/tracetail/internal/traces"
)

// FloodPolicy tunes overload detection.
type FloodPolicy struct {
	// BatchSize is the per-batch record count above which a batch counts as flooded.
	BatchSize int
	// Streak is the number of consecutive flooded batches that marks the buffer overloaded.
	Streak int
	// Tail is how many of each batch's newest records are kept while overloaded.
	// It is further bounded by the buffer capacity.
	Tail int
}

// DefaultFloodPolicy returns the stock thresholds: more than 200 records in a
// batch five times in a row, keeping 200 per batch afterwards.
func DefaultFloodPolicy() FloodPolicy {
	return FloodPolicy{BatchSize: 200, Streak: 5, Tail: 200}
}

func (p FloodPolicy) normalized() FloodPolicy {
	def := DefaultFloodPolicy()
	if p.BatchSize <= 0 {
		p.BatchSize = def.BatchSize
	}
	if p.Streak <= 0 {
		p.Streak = def.Streak
	}
	if p.Tail <= 0 {
		p.Tail = def.Tail
	}
	return p
}

// BufferState is an immutable view of a Buffer.
type BufferState struct {
	Records        []traces.Record
	Capacity       int
	OverloadStreak int
	Overloaded     bool
}

// Buffer is the bounded, flood-aware store behind a live tail. The newest
// record sits at the tail. Apply and Clear are serialized by an internal
// mutex so the buffer keeps a single writer at a time.
type Buffer struct {
	mu         sync.RWMutex
	policy     FloodPolicy
	capacity   int
	records    []traces.Record
	streak     int
	overloaded bool
}

// NewBuffer creates a buffer holding at most capacity records. Capacity is
// fixed for the buffer's lifetime; values below one are raised to one.
func NewBuffer(capacity int, policy FloodPolicy) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		policy:   policy.normalized(),
		capacity: capacity,
	}
}

// Apply folds one decoded batch into the buffer and returns the new state.
//
// The batch's append policy follows the overload flag as it stood before the
// batch: the batch that completes a flood streak is appended in full, and
// every later batch contributes only its newest records until Clear.
func (b *Buffer) Apply(batch []traces.Record) BufferState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(batch) > b.policy.BatchSize {
		b.streak++
	} else {
		b.streak = 0
	}
	limited := b.overloaded
	if b.streak >= b.policy.Streak {
		b.overloaded = true
	}

	incoming := batch
	if limited {
		if tail := min(b.policy.Tail, b.capacity); len(incoming) > tail {
			incoming = incoming[len(incoming)-tail:]
		}
	}
	if len(incoming) >= b.capacity {
		b.records = append([]traces.Record(nil), incoming[len(incoming)-b.capacity:]...)
		return b.stateLocked()
	}

	b.records = append(b.records, incoming...)
	if overflow := len(b.records) - b.capacity; overflow > 0 {
		b.records = append([]traces.Record(nil), b.records[overflow:]...)
	}
	return b.stateLocked()
}

// Clear empties the buffer and resets flood detection.
func (b *Buffer) Clear() BufferState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = nil
	b.streak = 0
	b.overloaded = false
	return b.stateLocked()
}

// State returns a copy of the current state.
func (b *Buffer) State() BufferState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stateLocked()
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Overloaded reports whether the sticky overload flag is set.
func (b *Buffer) Overloaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overloaded
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Buffer) stateLocked() BufferState {
	var records []traces.Record
	if len(b.records) > 0 {
		records = make([]traces.Record, len(b.records))
		copy(records, b.records)
	}
	return BufferState{
		Records:        records,
		Capacity:       b.capacity,
		OverloadStreak: b.streak,
		Overloaded:     b.overloaded,
	}
}

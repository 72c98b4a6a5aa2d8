package livetail

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/traces"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StatePaused
	StateStopped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Active reports whether the state holds an open or opening connection.
func (s State) Active() bool {
	return s == StateConnecting || s == StateStreaming || s == StatePaused
}

// Streamer opens the long-lived tail request. *vtselect.Client implements it.
type Streamer interface {
	Tail(ctx context.Context, query string) (io.ReadCloser, error)
}

// DefaultChunkSize is the read size of the pump loop.
const DefaultChunkSize = 64 << 10

// SessionOptions configure a Session.
type SessionOptions struct {
	Query     string
	Capacity  int
	Flood     FloodPolicy
	ChunkSize int

	// DecoderOptions are applied to the decoder of every connection.
	DecoderOptions []DecoderOption

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Snapshot is what the UI reads from a session.
type Snapshot struct {
	State        State
	Query        string
	Records      []traces.Record
	Capacity     int
	Overloaded   bool
	Error        string
	Received     int
	DecodeErrors int
}

// Session drives one live tail: it owns the connection, the decoder of that
// connection and the buffer. At most one connection is open at a time.
type Session struct {
	streamer  Streamer
	flood     FloodPolicy
	chunkSize int
	decOpts   []DecoderOption
	log       zerolog.Logger
	updates   chan struct{}

	mu       sync.Mutex
	state    State
	query    string
	buf      *Buffer
	err      string
	gen      uint64
	cancel   context.CancelCauseFunc
	done     chan struct{}
	received int
	decErrs  int
}

// NewSession creates an idle session.
func NewSession(streamer Streamer, opts SessionOptions) *Session {
	log := logging.Component("livetail")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	flood := opts.Flood.normalized()
	return &Session{
		streamer:  streamer,
		flood:     flood,
		chunkSize: chunk,
		decOpts:   opts.DecoderOptions,
		log:       log,
		updates:   make(chan struct{}, 1),
		query:     strings.TrimSpace(opts.Query),
		buf:       NewBuffer(opts.Capacity, flood),
	}
}

// Updates delivers a coalesced signal whenever the snapshot changes.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Start opens the tail request for the current query, cancelling any
// connection still open. It blocks until the server answers and reports
// whether streaming began. Failures are recorded as the session error rather
// than returned; a Stop issued while connecting yields false with no error.
func (s *Session) Start(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	prevCancel, prevDone := s.cancel, s.done
	s.gen++
	gen := s.gen
	connCtx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	s.done = nil
	s.state = StateConnecting
	s.err = ""
	query := s.query
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel(ErrStopped)
	}
	if prevDone != nil {
		<-prevDone
	}
	s.notify()

	s.log.Debug().Str("query", query).Msg("tail connecting")
	body, err := s.streamer.Tail(connCtx, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		// Stopped or restarted while connecting.
		if body != nil {
			_ = body.Close()
		}
		cancel(ErrStopped)
		return false
	}
	if err == nil && body == nil {
		err = errors.New("response has no body")
	}
	if err != nil {
		cancel(err)
		if ctx.Err() != nil {
			s.state = StateStopped
			s.log.Debug().Msg("tail connect cancelled")
			s.notify()
			return false
		}
		terr := &TransportError{Op: "connect", Err: err}
		s.state = StateErrored
		s.err = terr.Error()
		s.log.Error().Err(err).Str("query", query).Msg("tail connect failed")
		s.notify()
		return false
	}

	done := make(chan struct{})
	s.done = done
	s.state = StateStreaming
	s.log.Info().Str("query", query).Int("capacity", s.buf.Capacity()).Msg("tail connected")
	go s.pump(connCtx, cancel, gen, body, done)
	s.notify()
	return true
}

// Pause freezes the visible buffer. The connection stays open and incoming
// chunks are still decoded, but their records are dropped.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming {
		return false
	}
	s.state = StatePaused
	s.notify()
	return true
}

// Resume applies incoming batches again. Batches dropped while paused are
// not replayed.
func (s *Session) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return false
	}
	s.state = StateStreaming
	s.notify()
	return true
}

// Stop cancels the connection, discards the decoder state and clears the
// buffer. From Stopped or Errored it only clears the buffer.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel(ErrStopped)
		s.cancel = nil
	}
	s.gen++
	if s.state != StateStopped && s.state != StateErrored {
		s.state = StateStopped
		s.log.Debug().Msg("tail stopped")
	}
	s.buf.Clear()
	s.notify()
}

// ClearTraces empties the buffer without touching the connection.
func (s *Session) ClearTraces() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Clear()
	s.notify()
}

// SetQuery changes the query used by the next Start.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = strings.TrimSpace(query)
}

// SetCapacity replaces the buffer with an empty one of the new capacity.
func (s *Session) SetCapacity(capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if capacity == s.buf.Capacity() {
		return
	}
	s.buf = NewBuffer(capacity, s.flood)
	s.notify()
}

// Snapshot returns a copy of the session's visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.buf.State()
	return Snapshot{
		State:        s.state,
		Query:        s.query,
		Records:      st.Records,
		Capacity:     st.Capacity,
		Overloaded:   st.Overloaded,
		Error:        s.err,
		Received:     s.received,
		DecodeErrors: s.decErrs,
	}
}

// Wait blocks until the pump of the most recent connection has exited.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Session) pump(ctx context.Context, cancel context.CancelCauseFunc, gen uint64, body io.ReadCloser, done chan struct{}) {
	defer close(done)
	defer cancel(nil)
	defer func() { _ = body.Close() }()
	// Cancellation is the only way to unblock a pending read.
	stopClose := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stopClose()

	dec := NewDecoder(s.decOpts...)
	chunk := make([]byte, s.chunkSize)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			records, decErr := dec.Feed(chunk[:n])
			if !s.deliver(gen, records, decErr) {
				return
			}
		}
		if err != nil {
			if dropped := dec.Flush(); dropped > 0 {
				s.log.Debug().Int("bytes", dropped).Msg("discarded unterminated trailing line")
			}
			s.finish(ctx, gen, err)
			return
		}
	}
}

// deliver applies one decoded batch. It returns false once the connection
// has been superseded.
func (s *Session) deliver(gen uint64, records []traces.Record, decErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}

	if decErr != nil {
		for _, err := range unwrapJoined(decErr) {
			var de *DecodeError
			if errors.As(err, &de) {
				s.decErrs++
				s.log.Warn().Int("line", de.Line).Err(de.Err).Msg("dropping malformed record")
			}
		}
	}
	s.received += len(records)

	if s.state != StateStreaming || len(records) == 0 {
		return true
	}
	before := s.buf.Overloaded()
	st := s.buf.Apply(records)
	if st.Overloaded && !before {
		s.log.Warn().Int("batch", len(records)).Int("capacity", st.Capacity).Msg("live tail overloaded, keeping newest records per batch")
	}
	s.notify()
	return true
}

func (s *Session) finish(ctx context.Context, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.cancel = nil

	switch {
	case errors.Is(context.Cause(ctx), ErrStopped):
		return
	case errors.Is(err, io.EOF):
		s.state = StateStopped
		s.log.Info().Msg("tail closed by server")
	case ctx.Err() != nil:
		s.state = StateStopped
		s.log.Debug().Err(context.Cause(ctx)).Msg("tail cancelled")
	default:
		terr := &TransportError{Op: "read", Err: err}
		s.state = StateErrored
		s.err = terr.Error()
		s.log.Error().Err(err).Msg("tail stream failed")
	}
	s.notify()
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

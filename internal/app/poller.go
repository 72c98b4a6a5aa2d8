package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/state"
	"github.com/five82/tracetail/internal/vtselect"
)

const maxBackoff = 30 * time.Second

// ExploreParams describes what the explore poller fetches.
type ExploreParams struct {
	Query           string
	Limit           int
	Range           time.Duration // window ending now
	GroupBy         string
	HitsBars        int
	HitsFieldsLimit int
}

// Poller refreshes the explore store in the background.
type Poller struct {
	store    *state.Store
	fetcher  vtselect.Fetcher
	interval time.Duration
	trigger  chan struct{}
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	params ExploreParams
}

// StartPoller launches a background goroutine that refreshes the store. With
// a positive interval it refreshes at that cadence, backing off while the
// server fails; with zero it refreshes once and then only when asked to.
// It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, fetcher vtselect.Fetcher, params ExploreParams, interval time.Duration) *Poller {
	p := newPoller(store, fetcher, params, interval)
	go p.run(ctx)
	return p
}

func newPoller(store *state.Store, fetcher vtselect.Fetcher, params ExploreParams, interval time.Duration) *Poller {
	if interval < 0 {
		interval = 0
	}
	return &Poller{
		store:    store,
		fetcher:  fetcher,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		log:      logging.Component("poller"),
		now:      time.Now,
		params:   params,
	}
}

// SetQuery switches the explore query, drops the stale data and refreshes.
func (p *Poller) SetQuery(query string) {
	p.mu.Lock()
	p.params.Query = strings.TrimSpace(query)
	p.mu.Unlock()
	p.store.Reset()
	p.Refresh()
}

// Refresh asks for an immediate refresh.
func (p *Poller) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) Params() ExploreParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

func (p *Poller) run(ctx context.Context) {
	failures := 0
	for {
		if p.refresh(ctx) {
			failures = 0
		} else {
			failures++
		}

		var timer *time.Timer
		var wait <-chan time.Time
		if p.interval > 0 {
			delay := p.interval
			if failures > 0 {
				delay = calculateBackoff(failures, p.interval)
			}
			timer = time.NewTimer(delay)
			wait = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-wait:
		case <-p.trigger:
			stopTimer(timer)
		}
	}
}

// refresh fetches records and, when that worked, the hits histogram for the
// same window. It reports whether both succeeded.
func (p *Poller) refresh(ctx context.Context) bool {
	params := p.Params()
	end := p.now()
	start := end.Add(-params.Range)

	records, err := p.fetcher.Query(ctx, vtselect.QueryParams{
		Query: params.Query,
		Limit: params.Limit,
		Start: start,
		End:   end,
	})
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.store.Update(nil, nil, err)
		p.log.Warn().Err(err).Str("query", params.Query).Msg("explore query failed")
		return false
	}

	hits, err := p.fetcher.Hits(ctx, vtselect.HitsParams{
		Query:       params.Query,
		Start:       start,
		End:         end,
		Bars:        params.HitsBars,
		Field:       params.GroupBy,
		FieldsLimit: params.HitsFieldsLimit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.store.Update(nil, nil, err)
		p.log.Warn().Err(err).Str("query", params.Query).Msg("explore hits failed")
		return false
	}

	p.store.Update(records, hits, nil)
	p.log.Debug().Int("records", len(records)).Int("hits", vtselect.TotalHits(hits)).Msg("explore refreshed")
	return true
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

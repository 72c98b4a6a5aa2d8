package app

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/tracetail/internal/config"
	"github.com/five82/tracetail/internal/livetail"
	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/prefs"
	"github.com/five82/tracetail/internal/state"
	"github.com/five82/tracetail/internal/ui"
	"github.com/five82/tracetail/internal/vtselect"
)

// Options configure the tracetail application. Non-empty fields override
// the configuration file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/tracetail/prefs.toml
	ServerURL  string
	Query      string
	Refresh    *time.Duration
}

// LoadConfig reads the configuration file and applies the overrides in opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.ServerURL != "" {
		cfg.ServerURL = opts.ServerURL
	}
	if opts.Query != "" {
		cfg.Query = opts.Query
	}
	if opts.Refresh != nil {
		cfg.Explore.Refresh = *opts.Refresh
	}
	return cfg, nil
}

// NewClient builds the select API client for cfg.
func NewClient(cfg config.Config) (*vtselect.Client, error) {
	client, err := vtselect.NewClient(cfg.ServerURL, vtselect.WithTenant(cfg.AccountID, cfg.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("init select client: %w", err)
	}
	return client, nil
}

// Run boots the tracetail TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	closer, err := logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()
	log := logging.Component("app")

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	client, err := NewClient(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("server", client.BaseURL()).Str("query", cfg.Query).Msg("starting")

	capacity := cfg.Live.Capacity
	if userPrefs.LiveRows > 0 {
		capacity = userPrefs.LiveRows
	}
	session := livetail.NewSession(client, livetail.SessionOptions{
		Query:    cfg.Query,
		Capacity: capacity,
		Flood: livetail.FloodPolicy{
			BatchSize: cfg.Live.FloodBatchSize,
			Streak:    cfg.Live.FloodStreak,
			Tail:      cfg.Live.OverloadTail,
		},
	})
	defer func() {
		session.Stop()
		session.Wait()
	}()

	store := &state.Store{}
	poller := StartPoller(ctx, store, client, ExploreParams{
		Query:           cfg.Query,
		Limit:           cfg.Explore.Limit,
		Range:           cfg.Explore.Range,
		GroupBy:         cfg.Explore.GroupBy,
		HitsBars:        cfg.Explore.HitsBars,
		HitsFieldsLimit: cfg.Explore.HitsFieldsLimit,
	}, cfg.Explore.Refresh)

	groupRows := cfg.Explore.RowsPerPage
	if userPrefs.GroupRows > 0 {
		groupRows = userPrefs.GroupRows
	}
	return ui.Run(ui.Options{
		Context:       ctx,
		Session:       session,
		Store:         store,
		Explorer:      poller,
		ServerURL:     client.BaseURL(),
		GroupBy:       cfg.Explore.GroupBy,
		DisplayFields: cfg.Explore.DisplayFields,
		LiveRows:      capacity,
		GroupRows:     groupRows,
		Prefs:         userPrefs,
		PrefsPath:     opts.PrefsPath,
	})
}

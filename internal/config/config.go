package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved tracetail configuration.
type Config struct {
	ServerURL string
	AccountID string
	ProjectID string
	Query     string
	Live      LiveConfig
	Explore   ExploreConfig
	Log       LogConfig
}

// LiveConfig sizes the live tail buffer and its flood policy.
type LiveConfig struct {
	Capacity       int
	FloodBatchSize int
	FloodStreak    int
	OverloadTail   int
}

// ExploreConfig drives the grouped explore view and its poller.
type ExploreConfig struct {
	Limit           int
	GroupBy         string
	DisplayFields   []string
	Range           time.Duration
	Refresh         time.Duration // 0 refreshes once
	RowsPerPage     int
	HitsBars        int
	HitsFieldsLimit int
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

const (
	defaultConfigPath      = "~/.config/tracetail/config.toml"
	defaultServerURL       = "127.0.0.1:10428"
	defaultTenantID        = "0"
	defaultQuery           = "*"
	defaultCapacity        = 100
	defaultFloodBatchSize  = 200
	defaultFloodStreak     = 5
	defaultOverloadTail    = 200
	defaultExploreLimit    = 50
	defaultGroupBy         = "_stream"
	defaultDisplayFields   = "_msg"
	defaultRowsPerPage     = 50
	defaultRange           = 5 * time.Minute
	defaultHitsBars        = 100
	defaultHitsFieldsLimit = 5
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultLogFile         = "~/.local/state/tracetail/tracetail.log"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL: defaultServerURL,
		AccountID: defaultTenantID,
		ProjectID: defaultTenantID,
		Query:     defaultQuery,
		Live: LiveConfig{
			Capacity:       defaultCapacity,
			FloodBatchSize: defaultFloodBatchSize,
			FloodStreak:    defaultFloodStreak,
			OverloadTail:   defaultOverloadTail,
		},
		Explore: ExploreConfig{
			Limit:           defaultExploreLimit,
			GroupBy:         defaultGroupBy,
			DisplayFields:   []string{defaultDisplayFields},
			Range:           defaultRange,
			RowsPerPage:     defaultRowsPerPage,
			HitsBars:        defaultHitsBars,
			HitsFieldsLimit: defaultHitsFieldsLimit,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			File:   mustExpand(defaultLogFile),
		},
	}
}

type rawConfig struct {
	ServerURL string `toml:"server_url"`
	AccountID string `toml:"account_id"`
	ProjectID string `toml:"project_id"`
	Query     string `toml:"query"`
	Live      struct {
		Capacity       int `toml:"capacity"`
		FloodBatchSize int `toml:"flood_batch_size"`
		FloodStreak    int `toml:"flood_streak"`
		OverloadTail   int `toml:"overload_tail"`
	} `toml:"live"`
	Explore struct {
		Limit           int    `toml:"limit"`
		GroupBy         string `toml:"group_by"`
		DisplayFields   string `toml:"display_fields"`
		Range           string `toml:"range"`
		Refresh         string `toml:"refresh"`
		RowsPerPage     int    `toml:"rows_per_page"`
		HitsBars        int    `toml:"hits_bars"`
		HitsFieldsLimit int    `toml:"hits_fields_limit"`
	} `toml:"explore"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ServerURL = stringOr(raw.ServerURL, cfg.ServerURL)
	cfg.AccountID = stringOr(raw.AccountID, cfg.AccountID)
	cfg.ProjectID = stringOr(raw.ProjectID, cfg.ProjectID)
	cfg.Query = stringOr(raw.Query, cfg.Query)

	cfg.Live.Capacity = intOr(raw.Live.Capacity, cfg.Live.Capacity)
	cfg.Live.FloodBatchSize = intOr(raw.Live.FloodBatchSize, cfg.Live.FloodBatchSize)
	cfg.Live.FloodStreak = intOr(raw.Live.FloodStreak, cfg.Live.FloodStreak)
	cfg.Live.OverloadTail = intOr(raw.Live.OverloadTail, cfg.Live.OverloadTail)

	cfg.Explore.Limit = intOr(raw.Explore.Limit, cfg.Explore.Limit)
	cfg.Explore.GroupBy = stringOr(raw.Explore.GroupBy, cfg.Explore.GroupBy)
	if fields := splitFields(raw.Explore.DisplayFields); len(fields) > 0 {
		cfg.Explore.DisplayFields = fields
	}
	if cfg.Explore.Range, err = durationOr(raw.Explore.Range, cfg.Explore.Range); err != nil {
		return Config{}, fmt.Errorf("parse explore.range: %w", err)
	}
	if cfg.Explore.Refresh, err = durationOr(raw.Explore.Refresh, cfg.Explore.Refresh); err != nil {
		return Config{}, fmt.Errorf("parse explore.refresh: %w", err)
	}
	cfg.Explore.RowsPerPage = intOr(raw.Explore.RowsPerPage, cfg.Explore.RowsPerPage)
	cfg.Explore.HitsBars = intOr(raw.Explore.HitsBars, cfg.Explore.HitsBars)
	cfg.Explore.HitsFieldsLimit = intOr(raw.Explore.HitsFieldsLimit, cfg.Explore.HitsFieldsLimit)

	cfg.Log.Level = stringOr(raw.Log.Level, cfg.Log.Level)
	cfg.Log.Format = stringOr(raw.Log.Format, cfg.Log.Format)
	if file := strings.TrimSpace(raw.Log.File); file != "" {
		cfg.Log.File = mustExpand(file)
	}

	return cfg, nil
}

func stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func intOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func durationOr(value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", trimmed)
	}
	return d, nil
}

func splitFields(value string) []string {
	var fields []string
	for _, f := range strings.Split(value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

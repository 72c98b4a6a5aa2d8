package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, defaultServerURL)
	}
	if cfg.Live.Capacity != 100 || cfg.Live.FloodBatchSize != 200 || cfg.Live.FloodStreak != 5 || cfg.Live.OverloadTail != 200 {
		t.Fatalf("Live = %+v, want defaults", cfg.Live)
	}
	if cfg.Explore.Range != 5*time.Minute || cfg.Explore.Refresh != 0 {
		t.Fatalf("Explore range/refresh = %v/%v, want 5m/0s", cfg.Explore.Range, cfg.Explore.Refresh)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.Log.File != wantLog {
		t.Fatalf("Log.File = %q, want %q", cfg.Log.File, wantLog)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
server_url = "  10.0.0.5:9999  "
account_id = "7"
query = " service.name:api "

[live]
capacity = 500
flood_streak = 3

[explore]
group_by = "service.name"
display_fields = "_msg, duration ,"
range = "1h"
refresh = "10s"
rows_per_page = 25

[log]
level = "debug"
format = "json"
file = "  ~/.tracetail/debug.log  "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "10.0.0.5:9999" {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, "10.0.0.5:9999")
	}
	if cfg.AccountID != "7" || cfg.ProjectID != "0" {
		t.Fatalf("tenant = %q/%q, want 7/0", cfg.AccountID, cfg.ProjectID)
	}
	if cfg.Query != "service.name:api" {
		t.Fatalf("Query = %q", cfg.Query)
	}
	if cfg.Live.Capacity != 500 || cfg.Live.FloodStreak != 3 || cfg.Live.FloodBatchSize != 200 {
		t.Fatalf("Live = %+v", cfg.Live)
	}
	if got := strings.Join(cfg.Explore.DisplayFields, "|"); got != "_msg|duration" {
		t.Fatalf("DisplayFields = %q, want _msg|duration", got)
	}
	if cfg.Explore.Range != time.Hour || cfg.Explore.Refresh != 10*time.Second {
		t.Fatalf("Explore range/refresh = %v/%v", cfg.Explore.Range, cfg.Explore.Refresh)
	}
	if cfg.Explore.RowsPerPage != 25 || cfg.Explore.GroupBy != "service.name" {
		t.Fatalf("Explore = %+v", cfg.Explore)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("Log = %+v", cfg.Log)
	}
	if !strings.HasPrefix(cfg.Log.File, home) {
		t.Fatalf("Log.File = %q, want it under HOME %q", cfg.Log.File, home)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, `
server_url = "   "
query = ""

[live]
capacity = -3

[explore]
range = " "
display_fields = " , "
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("ServerURL = %q, want %q", cfg.ServerURL, defaultServerURL)
	}
	if cfg.Query != defaultQuery {
		t.Fatalf("Query = %q, want %q", cfg.Query, defaultQuery)
	}
	if cfg.Live.Capacity != defaultCapacity {
		t.Fatalf("Capacity = %d, want %d", cfg.Live.Capacity, defaultCapacity)
	}
	if cfg.Explore.Range != defaultRange {
		t.Fatalf("Range = %v, want %v", cfg.Explore.Range, defaultRange)
	}
	if len(cfg.Explore.DisplayFields) != 1 || cfg.Explore.DisplayFields[0] != defaultDisplayFields {
		t.Fatalf("DisplayFields = %v", cfg.Explore.DisplayFields)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, `server_url = [`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	for _, body := range []string{
		"[explore]\nrange = \"soon\"\n",
		"[explore]\nrefresh = \"-5s\"\n",
	} {
		_, err := Load(writeConfig(t, body))
		if err == nil {
			t.Fatalf("Load(%q) returned nil error", body)
		}
		if !strings.Contains(err.Error(), "parse explore.") {
			t.Fatalf("Load error = %q, want it to name the field", err.Error())
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

// Package prefs handles tracetail user preferences persistence.
// Preferences are stored in ~/.config/tracetail/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for tracetail. LiveRows and GroupRows record
// the last rows-per-page chosen in the UI; zero means unset.
type Prefs struct {
	Theme     string `toml:"theme"`
	RawJSON   bool   `toml:"raw_json"`
	LiveRows  int    `toml:"live_rows"`
	GroupRows int    `toml:"group_rows"`
}

// RowsOptions are the selectable rows-per-page values, shared by the live
// buffer capacity and the groups page size.
var RowsOptions = []int{10, 25, 50, 100, 250, 500, 1000}

const (
	defaultPrefsPath = "~/.config/tracetail/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences used when nothing is saved. Zero rows
// leave the choice to the configuration file.
func Default() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), nil
	}

	prefs := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	if !slices.Contains(RowsOptions, prefs.LiveRows) {
		prefs.LiveRows = 0
	}
	if !slices.Contains(RowsOptions, prefs.GroupRows) {
		prefs.GroupRows = 0
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// StepRows moves current by delta positions through RowsOptions, clamping at
// both ends. A value not in the list starts from the nearest larger option.
func StepRows(current, delta int) int {
	idx := slices.Index(RowsOptions, current)
	if idx < 0 {
		idx = len(RowsOptions) - 1
		for i, v := range RowsOptions {
			if v >= current {
				idx = i
				break
			}
		}
	}
	idx = max(0, min(len(RowsOptions)-1, idx+delta))
	return RowsOptions[idx]
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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

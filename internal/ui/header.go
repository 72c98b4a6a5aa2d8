package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tracetail/internal/livetail"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	snap := m.live.snapshot
	var parts []string

	// Logo
	parts = append(parts, bg.Render("tracetail", styles.Logo))

	// Live tail state
	parts = append(parts, styles.StateStyle(snap.State.String()).Render(strings.ToUpper(snap.State.String())))

	// Query
	query := snap.Query
	if query == "" {
		query = "*"
	}
	maxQuery := 60
	if compact {
		maxQuery = 24
	}
	parts = append(parts,
		bg.Render("Query:", styles.MutedText)+bg.Space()+
			bg.Render(truncateMiddle(query, maxQuery), styles.Text),
	)

	// Server
	if !compact && m.serverURL != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.serverURL, 40), styles.FaintText))
	}

	// Buffer fill
	parts = append(parts,
		bg.Render("Live:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d/%d", len(snap.Records), snap.Capacity), styles.Text),
	)
	if snap.Overloaded {
		parts = append(parts, bg.Render("OVERLOADED", styles.WarningText.Bold(true)))
	}

	// Explore freshness
	explore := m.groups.snapshot
	switch {
	case explore.IsOffline():
		parts = append(parts, bg.Render("EXPLORE OFFLINE", styles.DangerText.Bold(true)))
	case !explore.LastUpdated.IsZero():
		parts = append(parts, bg.Render(formatUpdated(explore.LastUpdated, time.Now()), styles.MutedText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxHeight(1).
		Render(bg.Join(parts, "  "))
}

// formatUpdated formats the last explore refresh with a relative indicator.
func formatUpdated(at, now time.Time) string {
	since := now.Sub(at)
	out := at.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewGroups:
		commands = []cmd{
			{"n/p", "Page"},
			{"+/-", "Rows"},
			{"R", "Refresh"},
			{"/", "Query"},
			{"r", ternary(m.prefs.RawJSON, "Fields", "Raw")},
			{"Tab", "Live"},
			{"?", "More"},
		}
	default: // ViewLive
		pauseLabel := "Pause"
		if m.live.snapshot.State == livetail.StatePaused {
			pauseLabel = "Resume"
		}
		stopLabel := "Stop"
		if !m.live.snapshot.State.Active() {
			stopLabel = "Start"
		}
		commands = []cmd{
			{"Space", pauseLabel},
			{"s", stopLabel},
			{"c", "Clear"},
			{"+/-", "Rows"},
			{"/", "Query"},
			{"r", ternary(m.prefs.RawJSON, "Fields", "Raw")},
			{"Tab", "Groups"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, sep))
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/five82/tracetail/internal/livetail"
	"github.com/five82/tracetail/internal/prefs"
	"github.com/five82/tracetail/internal/traces"
)

// liveState holds the live tail view.
type liveState struct {
	snapshot livetail.Snapshot
	viewport viewport.Model
	rows     int  // buffer capacity chosen with +/-
	follow   bool // keep the newest record in view
	dirty    bool // force a re-render even if the records did not change
	rendered int  // record count at last render
	lastID   string
}

func newLiveState(rows int) liveState {
	if rows <= 0 {
		rows = 100
	}
	return liveState{
		rows:     rows,
		follow:   true,
		rendered: -1,
		viewport: viewport.New(0, 0),
	}
}

// liveBodyHeight is the viewport height inside the box, leaving room for the
// overload banner when it is shown.
func (m Model) liveBodyHeight() int {
	h := m.height - chromeHeight - boxBorders
	if m.live.snapshot.Overloaded {
		h--
	}
	return maxInt(h, 1)
}

// updateLiveViewport updates the live viewport with current content.
func (m *Model) updateLiveViewport() {
	if !m.ready {
		return
	}
	m.live.viewport.Width = maxInt(m.width-2, 0)
	m.live.viewport.Height = m.liveBodyHeight()
	m.live.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	records := m.live.snapshot.Records
	lastID := ""
	if len(records) > 0 {
		lastID = records[len(records)-1].ID()
	}
	if m.live.dirty || len(records) != m.live.rendered || lastID != m.live.lastID {
		m.live.viewport.SetContent(m.renderLiveContent())
		m.live.rendered = len(records)
		m.live.lastID = lastID
		m.live.dirty = false
	}

	if m.live.follow {
		m.live.viewport.GotoBottom()
	}
}

// renderLive renders the live tail view.
func (m Model) renderLive() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	contentHeight := m.height - chromeHeight

	content := m.live.viewport.View()
	if m.live.snapshot.Overloaded {
		content = m.renderOverloadBanner() + "\n" + content
	}

	box := m.renderBox(m.liveTitle(), content, m.width, contentHeight, true)
	return box + "\n" + m.renderLiveStatus(styles, bg)
}

func (m Model) liveTitle() string {
	snap := m.live.snapshot
	return fmt.Sprintf("Live tail %d/%d", len(snap.Records), snap.Capacity)
}

// renderOverloadBanner warns that only the newest records of each batch are
// being kept.
func (m Model) renderOverloadBanner() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Warning)
	text := "Too many traces: only the newest records of each batch are shown. Narrow the query or clear to reset."
	return bg.FillLine(bg.Render(truncate(text, maxInt(m.width-4, 0)), styles.Text.Foreground(lipgloss.Color(m.theme.Background)).Bold(true)), maxInt(m.width-2, 0))
}

// renderLiveStatus renders the line below the live box.
func (m Model) renderLiveStatus(styles Styles, bg BgStyle) string {
	if m.query.active {
		return m.query.input.View()
	}
	snap := m.live.snapshot
	if snap.Error != "" {
		return bg.Render("tail error: "+truncate(snap.Error, maxInt(m.width-12, 10)), styles.DangerText) +
			bg.Render("  s to retry", styles.FaintText)
	}

	parts := []string{
		bg.Render(fmt.Sprintf("%d traces", len(snap.Records)), styles.FaintText),
		bg.Render(fmt.Sprintf("received %d", snap.Received), styles.FaintText),
	}
	if snap.DecodeErrors > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d malformed", snap.DecodeErrors), styles.WarningText))
	}
	parts = append(parts, bg.Render("auto-tail "+ternary(m.live.follow, "on", "off"), styles.FaintText))
	if m.prefs.RawJSON {
		parts = append(parts, bg.Render("raw", styles.AccentText))
	}
	if m.notice != "" {
		parts = append(parts, bg.Render(m.notice, styles.WarningText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLiveContent renders the buffered records, oldest first.
func (m *Model) renderLiveContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.live.viewport.Width

	records := m.live.snapshot.Records
	if len(records) == 0 {
		msg := "Waiting for traces..."
		switch m.live.snapshot.State {
		case livetail.StateStopped, livetail.StateIdle:
			msg = "Live tail stopped. Press s to start."
		case livetail.StateErrored:
			msg = "Live tail failed. Press s to retry."
		}
		return bg.FillLine(bg.Render(msg, styles.MutedText), width)
	}

	var b strings.Builder
	for i, rec := range records {
		var line string
		if m.prefs.RawJSON {
			line = bg.Render(truncate(rawRecord(rec), width), styles.Text)
		} else {
			line = m.colorizeRecord(rec, width, styles, bg)
		}
		b.WriteString(bg.FillLine(line, width))
		if i < len(records)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) colorizeRecord(rec traces.Record, width int, styles Styles, bg BgStyle) string {
	ts, msg, fields := recordParts(rec)
	remaining := width

	var parts []string
	if ts != "" {
		parts = append(parts, bg.Render(ts, styles.FaintText))
		remaining -= len(ts) + 1
	}
	if msg != "" && remaining > 0 {
		msg = truncate(msg, remaining)
		parts = append(parts, bg.Render(msg, styles.Text))
		remaining -= len([]rune(msg)) + 1
	}
	for _, f := range fields {
		if remaining <= 0 {
			break
		}
		name, value, _ := strings.Cut(f, "=")
		nameWidth := len([]rune(name)) + 1
		if nameWidth+1 > remaining {
			parts = append(parts, bg.Render(truncate(f, remaining), styles.MutedText))
			break
		}
		value = truncate(value, remaining-nameWidth)
		parts = append(parts, bg.Render(name+"=", styles.MutedText)+bg.Render(value, styles.InfoText))
		remaining -= nameWidth + len([]rune(value)) + 1
	}
	return strings.Join(parts, bg.Space())
}

// recordParts splits a record into its display time, message and the
// remaining fields as name=value pairs in field order.
func recordParts(rec traces.Record) (ts, msg string, fields []string) {
	if t := rec.Time(); !t.IsZero() {
		ts = t.In(time.Local).Format(recordTimeLayout)
	} else {
		ts = rec.Str(traces.TimeField)
	}
	msg = singleLine(rec.Msg())
	for _, name := range rec.Fields() {
		if name == traces.TimeField || name == traces.MsgField {
			continue
		}
		fields = append(fields, name+"="+singleLine(rec.Str(name)))
	}
	return ts, msg, fields
}

// formatRecord renders a record as one plain line: time, message, fields.
func formatRecord(rec traces.Record) string {
	ts, msg, fields := recordParts(rec)
	parts := make([]string, 0, 2+len(fields))
	if ts != "" {
		parts = append(parts, ts)
	}
	if msg != "" {
		parts = append(parts, msg)
	}
	parts = append(parts, fields...)
	return strings.Join(parts, " ")
}

// rawRecord renders the record as JSON without the internal id.
func rawRecord(rec traces.Record) string {
	data, err := json.Marshal(rec.Public())
	if err != nil {
		return formatRecord(rec)
	}
	return string(data)
}

// handleLiveKey processes keyboard input for the live view.
func (m Model) handleLiveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.PauseResume):
		if m.session == nil {
			return m, nil
		}
		if m.session.Resume() {
			m.live.follow = true
			m.live.viewport.GotoBottom()
		} else {
			m.session.Pause()
		}
		m.live.snapshot = m.session.Snapshot()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.session != nil {
			m.session.ClearTraces()
			m.live.snapshot = m.session.Snapshot()
			m.updateLiveViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.StopStart):
		if m.session == nil {
			return m, nil
		}
		if m.session.Snapshot().State.Active() {
			m.session.Stop()
			m.live.snapshot = m.session.Snapshot()
			m.updateLiveViewport()
			return m, nil
		}
		m.live.follow = true
		return m, startSessionCmd(m.ctx, m.session)

	case key.Matches(msg, m.keys.RowsUp), key.Matches(msg, m.keys.RowsDown):
		delta := 1
		if key.Matches(msg, m.keys.RowsDown) {
			delta = -1
		}
		rows := prefs.StepRows(m.live.rows, delta)
		if rows == m.live.rows {
			return m, nil
		}
		m.live.rows = rows
		m.prefs.LiveRows = rows
		m.savePrefs()
		if m.session != nil {
			m.session.SetCapacity(rows)
			m.live.snapshot = m.session.Snapshot()
			m.updateLiveViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.live.viewport.GotoTop()
		m.scrolledUp()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.live.viewport.GotoBottom()
		m.live.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.live.viewport.ScrollUp(1)
		m.scrolledUp()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.live.viewport.PageUp()
		m.scrolledUp()
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		m.live.viewport.HalfPageUp()
		m.scrolledUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.live.viewport.ScrollDown(1)
		m.live.follow = m.live.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.live.viewport.PageDown()
		m.live.follow = m.live.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.HalfPageDown):
		m.live.viewport.HalfPageDown()
		m.live.follow = m.live.viewport.AtBottom()
		return m, nil
	}

	return m, nil
}

// scrolledUp stops following and pauses the tail so the rows being read do
// not move.
func (m *Model) scrolledUp() {
	m.live.follow = false
	if m.session != nil && m.session.Pause() {
		m.live.snapshot = m.session.Snapshot()
	}
}

package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tracetail/internal/prefs"
	"github.com/five82/tracetail/internal/state"
	"github.com/five82/tracetail/internal/traces"
	"github.com/five82/tracetail/internal/vtselect"
)

// groupsState holds the grouped explore view.
type groupsState struct {
	snapshot state.Snapshot
	viewport viewport.Model
	page     int
	pages    int
	groups   int
	rows     int // rows per page, 0 means unlimited
}

func newGroupsState(rows int) groupsState {
	if rows < 0 {
		rows = 0
	}
	return groupsState{
		page:     1,
		pages:    1,
		rows:     rows,
		viewport: viewport.New(0, 0),
	}
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// updateGroupsViewport regroups the explore records and renders the current page.
func (m *Model) updateGroupsViewport() {
	if !m.ready {
		return
	}
	m.groups.viewport.Width = maxInt(m.width-2, 0)
	m.groups.viewport.Height = maxInt(m.height-chromeHeight-boxBorders-1, 1)
	m.groups.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	records := m.groups.snapshot.Records
	grouped := traces.GroupBy(records, m.groupBy, !traces.HasSortPipe(m.currentQuery()))
	m.groups.groups = len(grouped)
	m.groups.pages = traces.PageCount(len(records), m.groups.rows)
	if m.groups.page > m.groups.pages {
		m.groups.page = m.groups.pages
	}
	if m.groups.page < 1 {
		m.groups.page = 1
	}

	visible := traces.Window(grouped, m.groups.page, m.groups.rows)
	m.groups.viewport.SetContent(m.renderGroupsContent(visible, grouped))
}

// renderGroups renders the explore view.
func (m Model) renderGroups() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	contentHeight := m.height - chromeHeight

	content := m.renderHitsLine(m.groups.viewport.Width) + "\n" + m.groups.viewport.View()
	title := fmt.Sprintf("Groups by %s", m.groupBy)
	box := m.renderBox(title, content, m.width, contentHeight, true)
	return box + "\n" + m.renderGroupsStatus(styles, bg)
}

// renderHitsLine draws the hits histogram summed across series.
func (m Model) renderHitsLine(width int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	hits := m.groups.snapshot.Hits
	if len(hits) == 0 {
		return bg.FillLine(bg.Render("no hits", styles.FaintText), width)
	}

	label := fmt.Sprintf("%d hits ", vtselect.TotalHits(hits))
	spark := sparkline(bucketTotals(hits), maxInt(width-len(label), 0))
	return bg.FillLine(bg.Render(label, styles.MutedText)+bg.Render(spark, styles.AccentText), width)
}

// bucketTotals sums the per-bucket values of every series, ordered by
// bucket timestamp.
func bucketTotals(hits []vtselect.Hit) []int {
	sums := make(map[string]int)
	for _, h := range hits {
		for i, ts := range h.Timestamps {
			if i < len(h.Values) {
				sums[ts] += h.Values[i]
			}
		}
	}
	stamps := make([]string, 0, len(sums))
	for ts := range sums {
		stamps = append(stamps, ts)
	}
	sort.Strings(stamps)
	out := make([]int, len(stamps))
	for i, ts := range stamps {
		out[i] = sums[ts]
	}
	return out
}

// sparkline renders values as block characters, keeping the newest values
// when there are more than width.
func sparkline(values []int, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}
	var b strings.Builder
	for _, v := range values {
		if peak == 0 || v <= 0 {
			b.WriteRune(' ')
			continue
		}
		idx := v * (len(sparkBlocks) - 1) / peak
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

func (m *Model) renderGroupsContent(visible, all []traces.Group) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.groups.viewport.Width

	snap := m.groups.snapshot
	if len(visible) == 0 {
		msg := "No traces match the query."
		if !snap.HasData {
			msg = "Loading traces..."
			if snap.LastError != nil {
				msg = "Explore query failed: " + snap.LastError.Error()
			}
		}
		return bg.FillLine(bg.Render(truncate(msg, width), styles.MutedText), width)
	}

	// Group colors follow the group's rank across all pages.
	rank := make(map[string]int, len(all))
	totals := make(map[string]int, len(all))
	for i, g := range all {
		rank[g.KeysString()] = i
		totals[g.KeysString()] = g.Total
	}

	var lines []string
	for _, g := range visible {
		id := g.KeysString()
		lines = append(lines, m.renderGroupHeader(g, rank[id], totals[id], width, styles, bg))
		for _, rec := range g.Records {
			lines = append(lines, bg.FillLine(m.renderGroupRow(rec, width, styles, bg), width))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderGroupHeader(g traces.Group, rank, total, width int, styles Styles, bg BgStyle) string {
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.GroupColor(rank))).Bold(true)
	pairs := g.Pairs
	if len(pairs) == 0 {
		pairs = []string{ternary(m.groupBy == traces.Ungrouped, "all traces", m.groupBy+" missing")}
	}
	count := fmt.Sprintf(" %d of %d", g.Total, total)
	label := truncate(strings.Join(pairs, " "), maxInt(width-len(count)-2, 1))
	return bg.FillLine(bg.Render("▌ "+label, color)+bg.Render(count, styles.FaintText), width)
}

func (m *Model) renderGroupRow(rec traces.Record, width int, styles Styles, bg BgStyle) string {
	ts := rec.Str(traces.TimeField)
	if t := rec.Time(); !t.IsZero() {
		ts = t.Local().Format(recordTimeLayout)
	}
	prefix := "  " + ts + " "
	avail := maxInt(width-len([]rune(prefix)), 1)

	if m.prefs.RawJSON {
		return bg.Render(prefix, styles.FaintText) + bg.Render(truncate(rawRecord(rec), avail), styles.Text)
	}

	values := make([]string, 0, len(m.displayFields))
	for _, field := range m.displayFields {
		if v := singleLine(rec.Str(field)); v != "" {
			values = append(values, v)
		}
	}
	body := strings.Join(values, "  ")
	if body == "" {
		body = formatRecord(rec)
	}
	return bg.Render(prefix, styles.FaintText) + bg.Render(truncate(body, avail), styles.Text)
}

// renderGroupsStatus renders the line below the groups box.
func (m Model) renderGroupsStatus(styles Styles, bg BgStyle) string {
	if m.query.active {
		return m.query.input.View()
	}
	snap := m.groups.snapshot
	rows := "all"
	if m.groups.rows > 0 {
		rows = fmt.Sprintf("%d", m.groups.rows)
	}
	parts := []string{
		bg.Render(fmt.Sprintf("page %d/%d", m.groups.page, m.groups.pages), styles.AccentText),
		bg.Render(fmt.Sprintf("%d groups", m.groups.groups), styles.FaintText),
		bg.Render(fmt.Sprintf("%d entries", len(snap.Records)), styles.FaintText),
		bg.Render(rows+" rows/page", styles.FaintText),
	}
	if len(snap.Hits) > 0 {
		series := 0
		other := false
		for _, h := range snap.Hits {
			if h.IsOther {
				other = true
				continue
			}
			series++
		}
		summary := fmt.Sprintf("%d series", series)
		if other {
			summary += " + other"
		}
		parts = append(parts, bg.Render(summary, styles.FaintText))
	}
	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText.Bold(true)))
	case snap.LastError != nil:
		parts = append(parts, bg.Render(truncate(snap.LastError.Error(), 60), styles.WarningText))
	}
	if m.notice != "" {
		parts = append(parts, bg.Render(m.notice, styles.WarningText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// handleGroupsKey processes keyboard input for the groups view.
func (m Model) handleGroupsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextPage):
		if m.groups.page < m.groups.pages {
			m.groups.page++
			m.updateGroupsViewport()
			m.groups.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.groups.page > 1 {
			m.groups.page--
			m.updateGroupsViewport()
			m.groups.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.RowsUp), key.Matches(msg, m.keys.RowsDown):
		delta := 1
		if key.Matches(msg, m.keys.RowsDown) {
			delta = -1
		}
		rows := prefs.StepRows(m.groups.rows, delta)
		if rows == m.groups.rows {
			return m, nil
		}
		m.groups.rows = rows
		m.groups.page = 1
		m.prefs.GroupRows = rows
		m.savePrefs()
		m.updateGroupsViewport()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.explorer != nil {
			m.explorer.Refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.groups.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.groups.viewport.GotoBottom()
	case key.Matches(msg, m.keys.Up):
		m.groups.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.groups.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.groups.viewport.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.groups.viewport.PageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.groups.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.groups.viewport.HalfPageDown()
	}
	return m, nil
}

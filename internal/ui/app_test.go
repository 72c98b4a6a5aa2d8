package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tracetail/internal/livetail"
	"github.com/five82/tracetail/internal/prefs"
	"github.com/five82/tracetail/internal/state"
	"github.com/five82/tracetail/internal/traces"
)

type fakeSession struct {
	snap    livetail.Snapshot
	starts  int
	stops   int
	updates chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snap:    livetail.Snapshot{State: livetail.StateStreaming, Capacity: 100},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeSession) Start(context.Context) bool {
	f.starts++
	f.snap.State = livetail.StateStreaming
	return true
}

func (f *fakeSession) Pause() bool {
	if f.snap.State != livetail.StateStreaming {
		return false
	}
	f.snap.State = livetail.StatePaused
	return true
}

func (f *fakeSession) Resume() bool {
	if f.snap.State != livetail.StatePaused {
		return false
	}
	f.snap.State = livetail.StateStreaming
	return true
}

func (f *fakeSession) Stop() {
	f.stops++
	f.snap.State = livetail.StateStopped
	f.snap.Records = nil
}

func (f *fakeSession) ClearTraces()                { f.snap.Records = nil }
func (f *fakeSession) SetQuery(query string)       { f.snap.Query = query }
func (f *fakeSession) SetCapacity(capacity int)    { f.snap.Capacity = capacity; f.snap.Records = nil }
func (f *fakeSession) Snapshot() livetail.Snapshot { return f.snap }
func (f *fakeSession) Updates() <-chan struct{}    { return f.updates }

type fakeExplorer struct {
	query     string
	refreshes int
}

func (f *fakeExplorer) SetQuery(query string) { f.query = query }
func (f *fakeExplorer) Refresh()              { f.refreshes++ }

func newTestModel(t *testing.T) (Model, *fakeSession, *fakeExplorer, string) {
	t.Helper()
	session := newFakeSession()
	explorer := &fakeExplorer{}
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{
		Context:   context.Background(),
		Session:   session,
		Store:     &state.Store{},
		Explorer:  explorer,
		ServerURL: "http://127.0.0.1:10428",
		LiveRows:  100,
		GroupRows: 50,
		PrefsPath: prefsPath,
	})
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, session, explorer, prefsPath
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_PauseResume(t *testing.T) {
	m, session, _, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.Equal(t, livetail.StatePaused, session.snap.State)
	assert.Equal(t, livetail.StatePaused, m.live.snapshot.State)

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.Equal(t, livetail.StateStreaming, session.snap.State)
	assert.True(t, m.live.follow)
}

func TestModel_ScrollUpPausesAndStopsFollowing(t *testing.T) {
	m, session, _, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.False(t, m.live.follow)
	assert.Equal(t, livetail.StatePaused, session.snap.State)

	m = send(t, m, runes("G"))
	assert.True(t, m.live.follow)
}

func TestModel_StopThenStart(t *testing.T) {
	m, session, _, _ := newTestModel(t)

	m = send(t, m, runes("s"))
	assert.Equal(t, 1, session.stops)
	assert.Equal(t, livetail.StateStopped, m.live.snapshot.State)

	next, cmd := m.Update(runes("s"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, sessionStartedMsg{ok: true}, msg)
	m = send(t, next.(Model), msg)
	assert.Equal(t, 1, session.starts)
	assert.Equal(t, livetail.StateStreaming, m.live.snapshot.State)
}

func TestModel_QueryEditAppliesToBothViews(t *testing.T) {
	m, session, explorer, _ := newTestModel(t)
	m.groups.page = 3

	m = send(t, m, runes("/"))
	require.True(t, m.query.active)
	m = send(t, m, runes("svc:api"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.False(t, m.query.active)
	assert.Equal(t, "svc:api", explorer.query)
	assert.Equal(t, "svc:api", session.snap.Query)
	assert.Equal(t, 1, m.groups.page)
}

func TestModel_EmptyQueryBecomesWildcard(t *testing.T) {
	m, session, explorer, _ := newTestModel(t)

	m = send(t, m, runes("/"))
	_ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "*", explorer.query)
	assert.Equal(t, "*", session.snap.Query)
}

func TestModel_QueryEditEscCancels(t *testing.T) {
	m, _, explorer, _ := newTestModel(t)

	m = send(t, m, runes("/"))
	m = send(t, m, runes("x"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.query.active)
	assert.Empty(t, explorer.query)
}

func TestModel_LiveRowsPersist(t *testing.T) {
	m, session, _, prefsPath := newTestModel(t)

	m = send(t, m, runes("+"))
	assert.Equal(t, 250, m.live.rows)
	assert.Equal(t, 250, session.snap.Capacity)

	saved, err := prefs.Load(prefsPath)
	require.NoError(t, err)
	assert.Equal(t, 250, saved.LiveRows)

	m = send(t, m, runes("-"))
	m = send(t, m, runes("-"))
	assert.Equal(t, 50, m.live.rows)
}

func TestModel_ToggleRawPersists(t *testing.T) {
	m, _, _, prefsPath := newTestModel(t)

	m = send(t, m, runes("r"))
	assert.True(t, m.prefs.RawJSON)

	saved, err := prefs.Load(prefsPath)
	require.NoError(t, err)
	assert.True(t, saved.RawJSON)
}

func TestModel_ThemeCycle(t *testing.T) {
	m, _, _, prefsPath := newTestModel(t)

	m = send(t, m, runes("T"))
	assert.Equal(t, "Kanagawa", m.theme.Name)

	saved, err := prefs.Load(prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", saved.Theme)
}

func groupRecords(n int) []traces.Record {
	out := make([]traces.Record, 0, n)
	for i := 0; i < n; i++ {
		stream := `{app="a"}`
		if i%3 == 0 {
			stream = `{app="b"}`
		}
		out = append(out, traces.Record{
			"_time":   time.Unix(int64(i), 0).UTC().Format(time.RFC3339Nano),
			"_msg":    fmt.Sprintf("msg %d", i),
			"_stream": stream,
		})
	}
	return out
}

func TestModel_GroupsPaging(t *testing.T) {
	m, _, explorer, _ := newTestModel(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, ViewGroups, m.currentView)

	m = send(t, m, snapshotMsg(state.Snapshot{
		Records:     groupRecords(120),
		HasData:     true,
		LastUpdated: time.Now(),
	}))
	assert.Equal(t, 3, m.groups.pages)
	assert.Equal(t, 2, m.groups.groups)

	m = send(t, m, runes("n"))
	assert.Equal(t, 2, m.groups.page)
	m = send(t, m, runes("n"))
	m = send(t, m, runes("n"))
	assert.Equal(t, 3, m.groups.page)
	m = send(t, m, runes("p"))
	assert.Equal(t, 2, m.groups.page)

	// Changing rows per page returns to the first page.
	m = send(t, m, runes("+"))
	assert.Equal(t, 100, m.groups.rows)
	assert.Equal(t, 1, m.groups.page)
	assert.Equal(t, 2, m.groups.pages)

	_ = send(t, m, runes("R"))
	assert.Equal(t, 1, explorer.refreshes)
}

func TestModel_SessionMsgUpdatesLiveView(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	snap := livetail.Snapshot{
		State:    livetail.StateStreaming,
		Capacity: 100,
		Records:  []traces.Record{{"_msg": "first"}, {"_msg": "second"}},
	}
	m = send(t, m, sessionMsg(snap))
	assert.Len(t, m.live.snapshot.Records, 2)
	assert.Contains(t, m.live.viewport.View(), "second")
}

func TestModel_ViewRendersChrome(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	out := m.View()
	assert.Contains(t, out, "tracetail")
	assert.Contains(t, out, "Live tail")
	assert.Equal(t, 40, len(strings.Split(out, "\n")))

	m = send(t, m, runes("?"))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m = send(t, m, runes("x"))
	assert.False(t, m.showHelp)
}

func TestWaitSessionCmdReturnsSnapshot(t *testing.T) {
	session := newFakeSession()
	session.snap.Query = "q"
	session.updates <- struct{}{}

	m := New(Options{Session: session})
	msg := waitSessionCmd(context.Background(), session, m.limiter)()
	snap, ok := msg.(sessionMsg)
	require.True(t, ok)
	assert.Equal(t, "q", snap.Query)
}

func TestWaitSessionCmdStopsOnCancel(t *testing.T) {
	session := newFakeSession()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(Options{Session: session})
	assert.Nil(t, waitSessionCmd(ctx, session, m.limiter)())
}

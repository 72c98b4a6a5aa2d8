package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/five82/tracetail/internal/livetail"
	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/prefs"
	"github.com/five82/tracetail/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewLive View = iota
	ViewGroups
)

// LiveSession is the part of *livetail.Session the UI drives.
type LiveSession interface {
	Start(ctx context.Context) bool
	Pause() bool
	Resume() bool
	Stop()
	ClearTraces()
	SetQuery(query string)
	SetCapacity(capacity int)
	Snapshot() livetail.Snapshot
	Updates() <-chan struct{}
}

// Explorer refreshes the explore store. *app.Poller implements it.
type Explorer interface {
	SetQuery(query string)
	Refresh()
}

// Options configures the UI.
type Options struct {
	Context       context.Context
	Session       LiveSession
	Store         *state.Store
	Explorer      Explorer
	ServerURL     string
	GroupBy       string
	DisplayFields []string
	LiveRows      int
	GroupRows     int
	Prefs         prefs.Prefs
	PrefsPath     string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx           context.Context
	session       LiveSession
	store         *state.Store
	explorer      Explorer
	serverURL     string
	groupBy       string
	displayFields []string
	prefsPath     string
	prefs         prefs.Prefs
	keys          keyMap
	limiter       *rate.Limiter

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	notice      string // last non-fatal UI error, e.g. prefs not saved

	live   liveState
	groups groupsState
	query  queryState
}

// queryState holds the query editor.
type queryState struct {
	active bool
	input  textinput.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	userPrefs := opts.Prefs
	if userPrefs.Theme == "" {
		userPrefs.Theme = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	groupBy := strings.TrimSpace(opts.GroupBy)
	if groupBy == "" {
		groupBy = "_stream"
	}
	displayFields := opts.DisplayFields
	if len(displayFields) == 0 {
		displayFields = []string{"_msg"}
	}

	ti := textinput.New()
	ti.Placeholder = "*"
	ti.Prompt = "query: "
	ti.CharLimit = 1000

	return Model{
		ctx:           ctx,
		session:       opts.Session,
		store:         opts.Store,
		explorer:      opts.Explorer,
		serverURL:     opts.ServerURL,
		groupBy:       groupBy,
		displayFields: displayFields,
		prefsPath:     prefsPath,
		prefs:         userPrefs,
		keys:          DefaultKeyMap(),
		limiter:       rate.NewLimiter(rate.Every(LiveRenderInterval), 1),
		theme:         GetTheme(userPrefs.Theme),
		currentView:   ViewLive,
		live:          newLiveState(opts.LiveRows),
		groups:        newGroupsState(opts.GroupRows),
		query:         queryState{input: ti},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(DefaultUIInterval),
	}
	if m.session != nil {
		cmds = append(cmds, startSessionCmd(m.ctx, m.session), waitSessionCmd(m.ctx, m.session, m.limiter))
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLiveViewport()
		m.updateGroupsViewport()
		return m, nil

	case tickMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, tickCmd(DefaultUIInterval))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		snap := state.Snapshot(msg)
		changed := !snap.LastUpdated.Equal(m.groups.snapshot.LastUpdated)
		m.groups.snapshot = snap
		if changed {
			m.updateGroupsViewport()
		}
		return m, nil

	case sessionMsg:
		m.live.snapshot = livetail.Snapshot(msg)
		m.updateLiveViewport()
		return m, waitSessionCmd(m.ctx, m.session, m.limiter)

	case sessionStartedMsg:
		m.live.snapshot = m.session.Snapshot()
		m.updateLiveViewport()
		return m, nil
	}

	if m.query.active {
		var cmd tea.Cmd
		m.query.input, cmd = m.query.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.query.active {
		return m.handleQueryInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.live.dirty = true
		m.updateLiveViewport()
		m.updateGroupsViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewLive {
			m.currentView = ViewGroups
		} else {
			m.currentView = ViewLive
		}
		return m, nil

	case key.Matches(msg, m.keys.EditQuery):
		m.query.active = true
		m.query.input.SetValue(m.currentQuery())
		m.query.input.CursorEnd()
		return m, m.query.input.Focus()

	case key.Matches(msg, m.keys.ToggleRaw):
		m.prefs.RawJSON = !m.prefs.RawJSON
		m.savePrefs()
		m.live.dirty = true
		m.updateLiveViewport()
		m.updateGroupsViewport()
		return m, nil
	}

	switch m.currentView {
	case ViewGroups:
		return m.handleGroupsKey(msg)
	default:
		return m.handleLiveKey(msg)
	}
}

// handleQueryInput handles keyboard input while the query editor is open.
func (m Model) handleQueryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := strings.TrimSpace(m.query.input.Value())
		if query == "" {
			query = "*"
		}
		m.query.active = false
		m.query.input.Blur()
		return m, m.applyQuery(query)

	case msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlC:
		m.query.active = false
		m.query.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.query.input, cmd = m.query.input.Update(msg)
	return m, cmd
}

// applyQuery restarts the live tail and the explore view with a new query.
func (m *Model) applyQuery(query string) tea.Cmd {
	log := logging.Component("ui")
	log.Info().Str("query", query).Msg("query changed")
	m.groups.page = 1
	if m.explorer != nil {
		m.explorer.SetQuery(query)
	}
	if m.session == nil {
		return nil
	}
	m.session.SetQuery(query)
	m.live.follow = true
	return startSessionCmd(m.ctx, m.session)
}

func (m Model) currentQuery() string {
	if m.session != nil {
		return m.session.Snapshot().Query
	}
	return m.live.snapshot.Query
}

func (m *Model) savePrefs() {
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.notice = "prefs not saved: " + err.Error()
		log := logging.Component("ui")
		log.Warn().Err(err).Str("path", m.prefsPath).Msg("save prefs failed")
		return
	}
	m.notice = ""
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewGroups:
		return m.renderGroups()
	default:
		return m.renderLive()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type sessionMsg livetail.Snapshot

type sessionStartedMsg struct{ ok bool }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// startSessionCmd opens the tail connection off the UI goroutine.
func startSessionCmd(ctx context.Context, session LiveSession) tea.Cmd {
	return func() tea.Msg {
		return sessionStartedMsg{ok: session.Start(ctx)}
	}
}

// waitSessionCmd blocks until the session changes, then reports its snapshot.
// The limiter caps re-renders while the tail is busy; notifications arriving
// in between coalesce in the session.
func waitSessionCmd(ctx context.Context, session LiveSession, limiter *rate.Limiter) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Updates():
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		return sessionMsg(session.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		// Cancelled from outside (signal); not a failure.
		return nil
	}
	return err
}

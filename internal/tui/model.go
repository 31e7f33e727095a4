// Package tui is the live encounter view.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/group"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/tui/styles"
	"github.com/Iron-Ham/initiative/internal/turn"
)

// Tracker is the part of the tracker the view drives.
type Tracker interface {
	State(ctx context.Context) turn.State
	Participants(ctx context.Context) []model.Participant
	Groups(ctx context.Context) []group.Group
	StartTurn(ctx context.Context) turn.State
	NextTurn(ctx context.Context) turn.State
	PrevTurn(ctx context.Context) turn.State
	EndTurn(ctx context.Context) turn.State
	SyncRings(ctx context.Context)
	ClearAllRings(ctx context.Context)
	Flush(ctx context.Context) error
	Grid() grid.Service
}

// DefaultRefresh is the reload interval when none is configured.
const DefaultRefresh = time.Second

// Model is the bubbletea model of the encounter view.
type Model struct {
	tracker Tracker
	styles  *styles.Styles
	refresh time.Duration
	title   string

	state        turn.State
	participants []model.Participant
	groups       []group.Group

	status    string
	statusErr bool
	busy      bool
	showHelp  bool
	width     int
	height    int
}

// NewModel creates the view model.
func NewModel(t Tracker, s *styles.Styles, refresh time.Duration) Model {
	if s == nil {
		s = styles.New(nil)
	}
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return Model{
		tracker: t,
		styles:  s,
		refresh: refresh,
		title:   "Initiative",
	}
}

// WithTitle sets the header title.
func (m Model) WithTitle(title string) Model {
	if title != "" {
		m.title = title
	}
	return m
}

// Init loads the encounter and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), tick(m.refresh))
}

func (m Model) load() tea.Cmd {
	t := m.tracker
	return func() tea.Msg {
		ctx := context.Background()
		participants := t.Participants(ctx)
		return snapshotMsg{
			state:        t.State(ctx),
			participants: participants,
			groups:       group.Derive(participants),
		}
	}
}

func (m Model) run(name string, fn func(context.Context) turn.State) tea.Cmd {
	t := m.tracker
	return func() tea.Msg {
		ctx := context.Background()
		st := fn(ctx)
		_ = t.Flush(ctx)
		return commandMsg{command: name, state: st}
	}
}

func (m Model) runRings(name string, fn func(context.Context)) tea.Cmd {
	t := m.tracker
	return func() tea.Msg {
		ctx := context.Background()
		fn(ctx)
		_ = t.Flush(ctx)
		return commandMsg{command: name, state: t.State(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.load(), tick(m.refresh))

	case snapshotMsg:
		m.state = msg.state
		m.participants = msg.participants
		m.groups = msg.groups
		return m, nil

	case commandMsg:
		m.busy = false
		if !m.statusErr {
			m.status = describe(msg.command, msg.state)
		}
		return m, m.load()

	case busMsg:
		return m.handleEvent(msg.event)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, keys.Start):
		cmd = m.run("start", m.tracker.StartTurn)
	case key.Matches(msg, keys.Next):
		cmd = m.run("next", m.tracker.NextTurn)
	case key.Matches(msg, keys.Prev):
		cmd = m.run("prev", m.tracker.PrevTurn)
	case key.Matches(msg, keys.End):
		cmd = m.run("end", m.tracker.EndTurn)
	case key.Matches(msg, keys.Sync):
		cmd = m.runRings("sync", m.tracker.SyncRings)
	case key.Matches(msg, keys.Clear):
		cmd = m.runRings("clear", m.tracker.ClearAllRings)
	default:
		return m, nil
	}

	m.busy = true
	m.status = ""
	m.statusErr = false
	return m, cmd
}

func (m Model) handleEvent(e event.Event) (tea.Model, tea.Cmd) {
	switch e := e.(type) {
	case event.TrackerFailedEvent:
		m.status = fmt.Sprintf("%s failed: %v", e.Command, e.Err)
		m.statusErr = true
		return m, nil
	case event.RingsReconciledEvent:
		if !m.statusErr {
			m.status = fmt.Sprintf("%s rings: +%d ~%d -%d", e.Variant, e.Created, e.Updated, e.Deleted)
		}
		return m, nil
	case event.StoreChangedEvent:
		if e.EventType() == event.TypeEntitiesChanged {
			return m, m.load()
		}
	}
	return m, nil
}

func describe(command string, st turn.State) string {
	switch command {
	case "end":
		return "encounter ended"
	case "sync":
		return "rings synced"
	case "clear":
		return "rings cleared"
	}
	if e, ok := st.Active(); ok {
		return fmt.Sprintf("round %d: %s", st.Round, e.Name)
	}
	return "turn order is empty"
}

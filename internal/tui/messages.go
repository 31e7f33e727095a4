package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/group"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/turn"
)

// tickMsg is sent periodically to reload the encounter.
type tickMsg time.Time

// snapshotMsg carries a freshly loaded encounter.
type snapshotMsg struct {
	state        turn.State
	participants []model.Participant
	groups       []group.Group
}

// commandMsg reports that a tracker command finished.
type commandMsg struct {
	command string
	state   turn.State
}

// busMsg forwards a tracker event into the program.
type busMsg struct {
	event event.Event
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

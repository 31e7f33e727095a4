package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/initiative/internal/event"
)

// App wraps the bubbletea program.
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
}

// New creates the application. Events on bus are forwarded to the view.
func New(m Model, bus *event.Bus) *App {
	return &App{model: m, bus: bus}
}

// Run starts the program and blocks until it exits.
func (a *App) Run() error {
	a.program = tea.NewProgram(a.model, tea.WithAltScreen())

	if a.bus != nil {
		id := a.bus.SubscribeAll(func(e event.Event) {
			a.program.Send(busMsg{event: e})
		})
		defer a.bus.Unsubscribe(id)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		if _, ok := <-sigChan; ok {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/turn"
)

// View renders the encounter.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderOrder())

	if staged := m.renderStaged(); staged != "" {
		b.WriteString("\n")
		b.WriteString(staged)
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	out := b.String()
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render(m.title)
	var round string
	switch {
	case m.state.Started:
		round = fmt.Sprintf("Round %d", m.state.Round)
	default:
		round = "Not started"
	}
	return title + "  " + m.styles.Subtitle.Render(round)
}

func (m Model) renderOrder() string {
	if len(m.state.Entries) == 0 {
		return m.styles.Muted.Render("No participants in the turn order.")
	}

	byID := model.Index(m.participants)
	var rows []string
	for i, e := range m.state.Entries {
		rows = append(rows, m.renderEntry(e, i == m.state.ActiveIndex && e.Active, byID))
	}
	return m.styles.Box.Render(strings.Join(rows, "\n"))
}

func (m Model) renderEntry(e turn.Entry, active bool, byID map[string]model.Participant) string {
	marker := "  "
	if active {
		marker = "▶ "
	}

	line := fmt.Sprintf("%s%5s  %s", marker, formatInitiative(e.Initiative), e.Name)
	var style lipgloss.Style
	switch {
	case active:
		style = m.styles.Active
	case e.Kind == turn.KindGroup:
		style = m.styles.Group
	case byID[e.ID].PlayerControlled:
		style = m.styles.Player
	default:
		style = m.styles.Row
	}

	if e.Kind == turn.KindSolo {
		if p, ok := byID[e.ID]; ok && p.PlayerControlled {
			line += m.styles.Muted.Render("  " + ringSummary(m.tracker.Grid(), p))
		}
		return style.Render(line)
	}

	lines := []string{style.Render(line)}
	for _, id := range e.MemberIDs {
		p := byID[id]
		lines = append(lines, m.styles.Member.Render(fmt.Sprintf("%5s  %s", formatInitiative(p.Initiative), p.Name)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStaged() string {
	var names []string
	for _, g := range m.groups {
		if g.Staged {
			names = append(names, fmt.Sprintf("%s (%d)", g.Name, len(g.Members)))
		}
	}
	if len(names) == 0 {
		return ""
	}
	return m.styles.Staged.Render("Staged: " + strings.Join(names, ", "))
}

func (m Model) renderStatus() string {
	switch {
	case m.busy:
		return m.styles.Muted.Render("working…")
	case m.status == "":
		return ""
	case m.statusErr:
		return m.styles.Error.Render(m.status)
	default:
		return m.styles.Success.Render(m.status)
	}
}

func (m Model) renderHelp() string {
	bindings := keys.ShortHelp()
	if m.showHelp {
		bindings = keys.FullHelp()
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.styles.HelpKey.Render(h.Key)+" "+m.styles.HelpText.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func formatInitiative(v float64) string {
	return fmt.Sprintf("%g", v)
}

func ringSummary(g grid.Service, p model.Participant) string {
	var parts []string
	if p.Rings.Mode.Shows(model.KindMovement) && p.Movement > 0 {
		parts = append(parts, "move "+grid.Format(g, p.Movement))
	}
	if p.Rings.Mode.Shows(model.KindRange) {
		switch {
		case p.Touch:
			parts = append(parts, "touch")
		case p.AttackRange > 0:
			parts = append(parts, "reach "+grid.Format(g, p.AttackRange))
		}
	}
	return strings.Join(parts, " · ")
}

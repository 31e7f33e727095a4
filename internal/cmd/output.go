package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/turn"
	"github.com/Iron-Ham/initiative/internal/tui/styles"
)

// printer writes command output, styled when stdout is a terminal.
type printer struct {
	w      io.Writer
	styles *styles.Styles
	color  bool
}

func newPrinter(w io.Writer, theme string) *printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, styles: styles.ForTheme(theme), color: color}
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.styles.Success, fmt.Sprintf(format, args...)))
}

// state prints the round header and the turn order.
func (p *printer) state(st turn.State, participants []model.Participant, g grid.Service) {
	round := "Not started"
	if st.Started {
		round = fmt.Sprintf("Round %d", st.Round)
	}
	fmt.Fprintln(p.w, p.render(p.styles.Title, round))

	if len(st.Entries) == 0 {
		fmt.Fprintln(p.w, p.render(p.styles.Muted, "No participants in the turn order."))
		return
	}

	byID := model.Index(participants)
	for i, e := range st.Entries {
		active := i == st.ActiveIndex && e.Active
		marker := "  "
		if active {
			marker = "> "
		}
		line := fmt.Sprintf("%s%5g  %s", marker, e.Initiative, e.Name)

		style := p.styles.Row
		switch {
		case active:
			style = p.styles.Active
		case e.Kind == turn.KindGroup:
			style = p.styles.Group
		case byID[e.ID].PlayerControlled:
			style = p.styles.Player
		}

		if e.Kind == turn.KindSolo {
			if pt, ok := byID[e.ID]; ok && pt.PlayerControlled {
				line += p.render(p.styles.Muted, "  "+describeRings(g, pt))
			}
			fmt.Fprintln(p.w, p.render(style, line))
			continue
		}

		fmt.Fprintln(p.w, p.render(style, line))
		for _, id := range e.MemberIDs {
			m := byID[id]
			fmt.Fprintln(p.w, p.render(p.styles.Member, fmt.Sprintf("         %5g  %s", m.Initiative, m.Name)))
		}
	}
}

func describeRings(g grid.Service, pt model.Participant) string {
	var parts []string
	if pt.Rings.Mode.Shows(model.KindMovement) {
		parts = append(parts, "move "+grid.Format(g, pt.Movement))
	}
	if pt.Rings.Mode.Shows(model.KindRange) {
		if pt.Touch {
			parts = append(parts, "touch")
		} else {
			parts = append(parts, "reach "+grid.Format(g, pt.AttackRange))
		}
	}
	if len(parts) == 0 {
		return "rings off"
	}
	return strings.Join(parts, " · ") + " (" + string(pt.Rings.Attachment) + ")"
}

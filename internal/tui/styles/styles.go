package styles

import "github.com/charmbracelet/lipgloss"

// Styles are the rendered styles of one palette.
type Styles struct {
	Palette *ColorPalette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Header   lipgloss.Style
	Row      lipgloss.Style
	Active   lipgloss.Style
	Staged   lipgloss.Style
	Player   lipgloss.Style
	Group    lipgloss.Style
	Member   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Success  lipgloss.Style
	HelpKey  lipgloss.Style
	HelpText lipgloss.Style
	Box      lipgloss.Style
}

// New builds styles from a palette.
func New(p *ColorPalette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	return &Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Text).
			Underline(true),

		Row:    lipgloss.NewStyle().Foreground(p.Text),
		Player: lipgloss.NewStyle().Foreground(p.Player),
		Group:  lipgloss.NewStyle().Foreground(p.Group).Bold(true),
		Member: lipgloss.NewStyle().Foreground(p.Muted).PaddingLeft(2),
		Staged: lipgloss.NewStyle().Foreground(p.Staged).Strikethrough(true),

		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Surface).
			Background(p.Active),

		Muted:   lipgloss.NewStyle().Foreground(p.Muted),
		Error:   lipgloss.NewStyle().Foreground(p.Error),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Success: lipgloss.NewStyle().Foreground(p.Secondary),

		HelpKey:  lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		HelpText: lipgloss.NewStyle().Foreground(p.Muted),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
	}
}

// ForTheme builds styles for a theme name.
func ForTheme(name string) *Styles {
	return New(GetPalette(ThemeName(name)))
}

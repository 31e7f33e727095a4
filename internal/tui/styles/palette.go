package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault        ThemeName = "default"         // Blue/red dark theme
	ThemeDracula        ThemeName = "dracula"         // Dracula theme colors
	ThemeNord           ThemeName = "nord"            // Nord theme - cool blue-gray
	ThemeSolarizedLight ThemeName = "solarized-light" // Solarized Light variant
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{
		string(ThemeDefault),
		string(ThemeDracula),
		string(ThemeNord),
		string(ThemeSolarizedLight),
	}
}

// ValidThemes returns all valid theme names (built-in + custom).
func ValidThemes() []string {
	return append(BuiltinThemes(), CustomThemeNames()...)
}

// IsValidTheme checks if a theme name is valid (built-in or custom).
func IsValidTheme(name string) bool {
	if slices.Contains(BuiltinThemes(), name) {
		return true
	}
	return IsCustomTheme(name)
}

// ColorPalette defines the color scheme for a theme.
type ColorPalette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Surface   lipgloss.Color
	Text      lipgloss.Color
	Border    lipgloss.Color

	// Tracker row colors
	Active lipgloss.Color
	Staged lipgloss.Color
	Player lipgloss.Color
	Group  lipgloss.Color
}

// DefaultPalette matches the default ring colors.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   "#60A5FA",
		Secondary: "#10B981",
		Warning:   "#F59E0B",
		Error:     "#F87171",
		Muted:     "#9CA3AF",
		Surface:   "#1F2937",
		Text:      "#F9FAFB",
		Border:    "#6B7280",
		Active:    "#FBBF24",
		Staged:    "#9CA3AF",
		Player:    "#60A5FA",
		Group:     "#A78BFA",
	}
}

// DraculaPalette returns the Dracula colors.
func DraculaPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   "#BD93F9",
		Secondary: "#50FA7B",
		Warning:   "#FFB86C",
		Error:     "#FF5555",
		Muted:     "#6272A4",
		Surface:   "#282A36",
		Text:      "#F8F8F2",
		Border:    "#44475A",
		Active:    "#F1FA8C",
		Staged:    "#6272A4",
		Player:    "#8BE9FD",
		Group:     "#FF79C6",
	}
}

// NordPalette returns the Nord colors.
func NordPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   "#88C0D0",
		Secondary: "#A3BE8C",
		Warning:   "#EBCB8B",
		Error:     "#BF616A",
		Muted:     "#7B88A1",
		Surface:   "#2E3440",
		Text:      "#ECEFF4",
		Border:    "#4C566A",
		Active:    "#EBCB8B",
		Staged:    "#7B88A1",
		Player:    "#81A1C1",
		Group:     "#B48EAD",
	}
}

// SolarizedLightPalette returns the Solarized Light colors.
func SolarizedLightPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   "#268BD2",
		Secondary: "#859900",
		Warning:   "#B58900",
		Error:     "#DC322F",
		Muted:     "#657B83",
		Surface:   "#EEE8D5",
		Text:      "#073642",
		Border:    "#93A1A1",
		Active:    "#CB4B16",
		Staged:    "#93A1A1",
		Player:    "#2AA198",
		Group:     "#6C71C4",
	}
}

// GetPalette returns the palette for a theme name. Unknown names fall
// back to the default palette.
func GetPalette(name ThemeName) *ColorPalette {
	if custom := GetCustomTheme(name); custom != nil {
		return custom.ToPalette()
	}
	switch name {
	case ThemeDracula:
		return DraculaPalette()
	case ThemeNord:
		return NordPalette()
	case ThemeSolarizedLight:
		return SolarizedLightPalette()
	default:
		return DefaultPalette()
	}
}

// Package styles holds the TUI palette and the lipgloss styles built on it.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette. Each colour adapts to a light or dark terminal
// background.
type Theme struct {
	Accent    lipgloss.AdaptiveColor // EU blue: titles, assistant turns
	Highlight lipgloss.AdaptiveColor // EU gold: citation sources, warnings
	Secondary lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Faint     lipgloss.AdaptiveColor
	Good      lipgloss.AdaptiveColor
	Bad       lipgloss.AdaptiveColor
	Frame     lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor
}

// DefaultTheme returns the EU flag inspired palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.AdaptiveColor{Light: "#003399", Dark: "#2563EB"},
		Highlight: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FACC15"},
		Secondary: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"},
		Text:      lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"},
		Faint:     lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6C7086"},
		Good:      lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#A6E3A1"},
		Bad:       lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F38BA8"},
		Frame:     lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"},
		Bar:       lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#181825"},
	}
}

// Styles are the rendered styles every view and component shares.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Transcript speaker labels.
	User      lipgloss.Style
	Assistant lipgloss.Style

	// Citation panel frame and its "Source:" line.
	Panel       lipgloss.Style
	PanelHeader lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	rounded := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame)

	return &Styles{
		theme:    theme,
		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.Secondary).Bold(true),
		Normal:   fg(theme.Text),
		Muted:    fg(theme.Faint),
		Selected: fg(theme.Text).Background(theme.Accent).Bold(true),
		Error:    fg(theme.Bad),
		Success:  fg(theme.Good),
		Warning:  fg(theme.Highlight),
		Help:     fg(theme.Faint),

		InputField: rounded.Padding(0, 1),
		StatusBar:  fg(theme.Faint).Background(theme.Bar).Padding(0, 1),
		Border:     rounded,

		User:      fg(theme.Secondary).Bold(true),
		Assistant: fg(theme.Accent).Bold(true),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(theme.Secondary).
			PaddingLeft(1),
		PanelHeader: fg(theme.Highlight).Bold(true),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette behind the styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// MarkdownStyle names the glamour style that matches the terminal
// background, for rendering answers.
func (s *Styles) MarkdownStyle() string {
	if lipgloss.HasDarkBackground() {
		return "dracula"
	}
	return "light"
}

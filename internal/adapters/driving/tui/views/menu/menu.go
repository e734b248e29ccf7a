// Package menu provides the start screen of the assistant.
package menu

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
)

// Item is one entry of the menu. An item with a non-empty Unavailable
// reason is shown dimmed and cannot be opened.
type Item struct {
	Label       string
	Hint        string
	View        messages.ViewType
	Quit        bool
	Unavailable string
}

// Availability reports which optional views have a service behind them.
type Availability struct {
	Search   bool
	Settings bool
}

// View is the start screen.
type View struct {
	styles   *styles.Styles
	keys     *keymap.KeyMap
	items    []Item
	selected int
	notice   string
	width    int
	height   int
	ready    bool
}

// NewView creates the menu. Chat is always available; search and settings
// depend on avail.
func NewView(s *styles.Styles, km *keymap.KeyMap, avail Availability) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	items := []Item{
		{Label: "Chat", Hint: "ask questions with cited answers", View: messages.ViewChat},
		{Label: "Search", Hint: "browse the nearest passages", View: messages.ViewSearch},
		{Label: "Settings", Hint: "providers and vector store", View: messages.ViewSettings},
		{Label: "Help", Hint: "keybindings", View: messages.ViewHelp},
		{Label: "Quit", Quit: true},
	}
	if !avail.Search {
		items[1].Unavailable = "search needs an embedding provider"
	}
	if !avail.Settings {
		items[2].Unavailable = "settings are not available"
	}

	return &View{styles: s, keys: km, items: items, width: 80, height: 24}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		k := msg.String()
		switch {
		case keymap.Matches(k, v.keys.Up):
			v.selected = max(v.selected-1, 0)
			v.notice = ""
		case keymap.Matches(k, v.keys.Down):
			v.selected = min(v.selected+1, len(v.items)-1)
			v.notice = ""
		case keymap.Matches(k, v.keys.Select):
			return v, v.open(v.items[v.selected])
		case k == "q":
			return v, tea.Quit
		}
	}
	return v, nil
}

func (v *View) open(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	if item.Unavailable != "" {
		v.notice = item.Unavailable
		return nil
	}
	v.notice = ""
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("gdprqa"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Subtitle.Render("Questions and answers on the GDPR"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		cursor, label := "  ", v.styles.Normal.Render(item.Label)
		switch {
		case item.Unavailable != "":
			label = v.styles.Muted.Render(item.Label)
		case i == v.selected:
			label = v.styles.Selected.Render(item.Label)
		}
		if i == v.selected {
			cursor = "> "
		}
		b.WriteString(cursor + label)
		if item.Hint != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.notice != "" {
		b.WriteString(v.styles.Warning.Render(v.notice))
		b.WriteString("\n")
	}
	b.WriteString(v.styles.Muted.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the index of the highlighted item.
func (v *View) Selected() int {
	return v.selected
}

// Notice returns the reason the last selection could not be opened.
func (v *View) Notice() string {
	return v.notice
}

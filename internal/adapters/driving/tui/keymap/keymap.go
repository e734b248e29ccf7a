// Package keymap holds the TUI key bindings and the hint sets each view
// shows in its status bar.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

var _ help.KeyMap = (*KeyMap)(nil)

// KeyMap is the set of bindings shared by all views. Submit and Select
// share enter; which one applies depends on the focused view.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// List navigation in the menu and search results.
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	NewSearch key.Binding
	Rerank    key.Binding

	// Chat.
	Submit       key.Binding
	Clear        key.Binding
	TogglePanels key.Binding
}

func bind(helpKey, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: bind("ctrl+c", "quit", "ctrl+c"),
		Help: bind("?", "help", "?"),
		Back: bind("esc", "back", "esc"),

		Up:        bind("↑/k", "up", "up", "k"),
		Down:      bind("↓/j", "down", "down", "j"),
		Select:    bind("enter", "expand", "enter"),
		NewSearch: bind("n", "new search", "n"),
		Rerank:    bind("r", "rerank", "r"),

		Submit:       bind("enter", "send", "enter"),
		Clear:        bind("ctrl+l", "clear", "ctrl+l"),
		TogglePanels: bind("tab", "sources", "tab"),
	}
}

// ShortHelp is shown by views without a hint set of their own.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

func (k *KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Submit, k.TogglePanels, k.Clear, k.Back}
}

func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewSearch, k.Up, k.Select, k.Rerank, k.Back}
}

// FullHelp groups every binding by view, for the help overlay.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.TogglePanels, k.Clear},
		{k.Up, k.Down, k.Select, k.NewSearch, k.Rerank},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches reports whether keyStr, as produced by tea.KeyMsg.String,
// triggers an enabled binding.
func Matches(keyStr string, binding key.Binding) bool {
	return binding.Enabled() && slices.Contains(binding.Keys(), keyStr)
}

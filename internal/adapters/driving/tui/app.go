package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/views/settings"
)

// App routes messages between the menu, chat, search and settings
// screens. It is the tea.Model handed to Bubbletea.
type App struct {
	ctx    context.Context
	theme  *styles.Styles
	keys   *keymap.KeyMap
	keyRef help.Model

	menu     *menu.View
	chat     *chat.View
	search   *search.View
	settings *settings.View

	active  messages.ViewType
	lastErr error
	sized   bool
}

var _ tea.Model = (*App)(nil)

// NewApp builds the screens over ports. Screens whose port is missing
// are greyed out in the menu.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	theme := styles.DefaultStyles()
	keys := keymap.DefaultKeyMap()
	return &App{
		ctx:    context.Background(),
		theme:  theme,
		keys:   keys,
		keyRef: newHelp(theme),
		menu: menu.NewView(theme, keys, menu.Availability{
			Search:   ports.Search != nil,
			Settings: ports.Settings != nil,
		}),
		chat:     chat.NewView(theme, keys, ports.Conversation, ports.Assembler),
		search:   search.NewView(theme, keys, ports.Search).WithK(ports.SearchK),
		settings: settings.NewView(theme, ports.Settings),
		active:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context turns and searches run under; cancelling
// it also stops the program started by Run.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chat.WithContext(ctx)
	a.search.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.SetWindowTitle("gdprqa - GDPR assistant"))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
	case messages.ViewChanged:
		a.active = msg.View
		return a, a.enter(msg.View)
	case messages.ErrorOccurred:
		a.lastErr = msg.Err
		if a.active != messages.ViewSearch {
			return a, nil
		}
	}

	// Results of background work go to the screen that started it, even
	// after the user has moved on, so a streamed answer keeps draining.
	target, owned := owner(msg)
	if !owned {
		target = a.active
	}
	cmd := a.route(target, msg)

	switch msg := msg.(type) {
	case messages.TurnCompleted:
		if msg.Err != nil {
			a.lastErr = msg.Err
		}
	case messages.SearchCompleted:
		a.lastErr = a.search.Err()
	}
	return a, cmd
}

// owner names the screen a background result belongs to.
func owner(msg tea.Msg) (messages.ViewType, bool) {
	switch msg.(type) {
	case messages.FragmentReceived, messages.TurnCompleted, messages.ConversationCleared:
		return messages.ViewChat, true
	case messages.SearchCompleted:
		return messages.ViewSearch, true
	case messages.SettingsLoaded, messages.SettingsSaved:
		return messages.ViewSettings, true
	}
	return 0, false
}

// enter prepares a screen being switched to. Search and settings start
// fresh each visit; the chat keeps its history.
func (a *App) enter(v messages.ViewType) tea.Cmd {
	switch v {
	case messages.ViewChat:
		return a.chat.Init()
	case messages.ViewSearch:
		a.search.Reset()
		return a.search.Init()
	case messages.ViewSettings:
		a.settings.Reset()
		return a.settings.Init()
	}
	return nil
}

func (a *App) route(v messages.ViewType, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch v {
	case messages.ViewMenu:
		a.menu, cmd = a.menu.Update(msg)
	case messages.ViewChat:
		a.chat, cmd = a.chat.Update(msg)
	case messages.ViewSearch:
		a.search, cmd = a.search.Update(msg)
	case messages.ViewSettings:
		a.settings, cmd = a.settings.Update(msg)
	case messages.ViewHelp:
		if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
			a.active = messages.ViewMenu
		}
	}
	return cmd
}

func (a *App) View() string {
	if !a.sized {
		return "Initialising..."
	}
	switch a.active {
	case messages.ViewChat:
		return a.chat.View()
	case messages.ViewSearch:
		return a.search.View()
	case messages.ViewSettings:
		return a.settings.View()
	case messages.ViewHelp:
		return a.helpScreen()
	}
	return a.menu.View()
}

func newHelp(theme *styles.Styles) help.Model {
	h := help.New()
	h.Styles.FullKey = theme.Subtitle
	h.Styles.FullDesc = theme.Normal
	h.Styles.FullSeparator = theme.Muted
	return h
}

// helpScreen lists every binding in columns: chat, search, navigation.
func (a *App) helpScreen() string {
	return a.theme.Title.Render("Help") + "\n\n" +
		a.keyRef.FullHelpView(a.keys.FullHelp()) + "\n\n" +
		a.theme.Muted.Render("pgup/pgdn scroll the chat history and expanded passages") + "\n\n" +
		a.theme.Help.Render("[esc] back to menu")
}

// Run blocks until the user quits or the context is cancelled.
func (a *App) Run() error {
	prog := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(a.ctx))
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func (a *App) CurrentView() messages.ViewType { return a.active }

// Err is the last failure reported by a turn, a search or a command.
func (a *App) Err() error { return a.lastErr }

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool { return a.sized }

// SetDimensions resizes every screen.
func (a *App) SetDimensions(width, height int) {
	a.sized = true
	a.menu.SetDimensions(width, height)
	a.chat.SetDimensions(width, height)
	a.search.SetDimensions(width, height)
	a.settings.SetDimensions(width, height)
	a.keyRef.Width = width
}

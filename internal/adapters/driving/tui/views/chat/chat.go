// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/citations"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// ErrNoConversation indicates that no conversation service was provided.
var ErrNoConversation = errors.New("conversation service is required")

// streamBuffer bounds how many fragments may queue ahead of rendering.
const streamBuffer = 64

// View is the chat view: history, streamed answer, citation panels and
// an input line.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Input
	history   viewport.Model
	panels    *citations.Panels
	statusbar *status.Bar
	markdown  *glamour.TermRenderer

	conversation driving.ConversationService
	assembler    driving.ContextAssembler
	ctx          context.Context

	messages []domain.Message
	pending  string
	partial  strings.Builder
	busy     bool
	stream   <-chan tea.Msg
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a chat view. The assembler is optional; without it no
// citation panels are shown.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	conversation driving.ConversationService,
	assembler driving.ContextAssembler,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	// A nil renderer falls back to plain text.
	md, _ := glamour.NewTermRenderer(
		glamour.WithStylePath(s.MarkdownStyle()),
		glamour.WithWordWrap(0),
	)

	bar := status.NewBar(s, km)
	bar.SetHints(km.ChatHelp())

	v := &View{
		styles:       s,
		keymap:       km,
		input:        input.NewChatInput(s),
		history:      viewport.New(80, 14),
		panels:       citations.New(s),
		statusbar:    bar,
		markdown:     md,
		conversation: conversation,
		assembler:    assembler,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
	v.refresh()
	return v
}

// WithContext sets the context turns run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.FragmentReceived:
		v.partial.WriteString(msg.Text)
		v.refresh()
		return v, waitForStream(v.stream)

	case messages.TurnCompleted:
		v.handleTurnCompleted(msg)
		return v, nil

	case messages.ConversationCleared:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.messages = nil
		v.panels.SetCitations(nil)
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("Conversation cleared")
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.history, cmd = v.history.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(keyStr, v.keymap.Clear):
		if v.busy {
			v.statusbar.SetMessage("Cannot clear while an answer is in progress")
			return v, nil
		}
		return v, v.clear()

	case keymap.Matches(keyStr, v.keymap.TogglePanels):
		v.panels.Toggle()
		v.refresh()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Submit):
		text := strings.TrimSpace(v.input.Value())
		if text == "" || v.busy {
			return v, nil
		}
		v.input.SetValue("")
		return v, v.submit(text)

	case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
		var cmd tea.Cmd
		v.history, cmd = v.history.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts a turn in the background. Fragments and the final result
// arrive through the stream channel.
func (v *View) submit(text string) tea.Cmd {
	if v.conversation == nil {
		v.setError(ErrNoConversation)
		return nil
	}

	v.busy = true
	v.err = nil
	v.pending = text
	v.partial.Reset()
	v.statusbar.SetState(status.StateRetrieving)
	v.statusbar.SetMessage("")
	v.refresh()

	ctx := v.ctx
	conversation := v.conversation
	ch := make(chan tea.Msg, streamBuffer)
	v.stream = ch

	go func() {
		defer close(ch)
		send := func(m tea.Msg) {
			select {
			case ch <- m:
			case <-ctx.Done():
			}
		}
		result, err := conversation.Submit(ctx, text, func(fragment string) {
			send(messages.FragmentReceived{Text: fragment})
		})
		send(messages.TurnCompleted{Result: result, Err: err})
	}()

	return waitForStream(ch)
}

// waitForStream reads the next message of a running turn.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (v *View) handleTurnCompleted(msg messages.TurnCompleted) {
	v.busy = false
	v.stream = nil
	v.pending = ""
	v.partial.Reset()

	if msg.Err != nil {
		v.setError(msg.Err)
		v.refresh()
		return
	}

	if v.conversation != nil {
		v.messages = v.conversation.Messages()
	}
	if msg.Result != nil && v.assembler != nil {
		v.panels.SetCitations(v.assembler.Citations(msg.Result.Context))
	}

	if msg.Result != nil && msg.Result.Err != nil {
		v.setError(msg.Result.Err)
	} else {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("")
	}
	v.refresh()
}

func (v *View) clear() tea.Cmd {
	conversation := v.conversation
	return func() tea.Msg {
		if conversation == nil {
			return messages.ConversationCleared{Err: ErrNoConversation}
		}
		return messages.ConversationCleared{Err: conversation.Clear()}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// refresh re-renders the history into the viewport and scrolls to the end.
func (v *View) refresh() {
	blocks := make([]string, 0, len(v.messages)+2)
	for _, m := range v.messages {
		blocks = append(blocks, v.renderMessage(m))
	}
	if v.busy {
		blocks = append(blocks, v.styles.User.Render("You")+"\n"+v.pending)
		answer := v.partial.String()
		if answer == "" {
			answer = v.styles.Muted.Render("...")
		}
		blocks = append(blocks, v.styles.Assistant.Render("Assistant")+"\n"+answer)
	}
	if len(blocks) == 0 {
		blocks = append(blocks, v.styles.Muted.Render("Ask a question about the GDPR."))
	}

	v.history.SetContent(strings.Join(blocks, "\n\n"))
	v.history.GotoBottom()
}

func (v *View) renderMessage(m domain.Message) string {
	if m.Role == domain.RoleUser {
		return v.styles.User.Render("You") + "\n" + m.Content
	}
	return v.styles.Assistant.Render("Assistant") + "\n" + v.renderMarkdown(m.Content)
}

func (v *View) renderMarkdown(text string) string {
	if v.markdown == nil {
		return text
	}
	out, err := v.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	if v.busy && v.conversation != nil {
		if state := status.FromSession(v.conversation.State()); state != status.StateReady {
			v.statusbar.SetState(state)
		}
	}

	sections := []string{
		v.styles.Title.Render("GDPR Assistant"),
		"",
		v.history.View(),
	}
	if panels := v.panels.View(); panels != "" {
		sections = append(sections, "", panels)
	}
	sections = append(sections, "", v.input.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.panels.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.history.Width = width
	// Header, input and status bar take eight lines; panels get the rest
	// of the lower third.
	v.history.Height = max(height*2/3-8, 5)
	v.refresh()
}

// Busy reports whether a turn is in flight.
func (v *View) Busy() bool {
	return v.busy
}

// Messages returns the rendered history.
func (v *View) Messages() []domain.Message {
	return v.messages
}

// Citations returns the citations of the last answer.
func (v *View) Citations() []domain.Citation {
	return v.panels.Citations()
}

// PanelsExpanded reports whether the citation panels are expanded.
func (v *View) PanelsExpanded() bool {
	return v.panels.Expanded()
}

// Partial returns the answer streamed so far.
func (v *View) Partial() string {
	return v.partial.String()
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

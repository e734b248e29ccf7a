// Package status renders the one-line bar at the bottom of each view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady      State = "ready"
	StateSearching  State = "searching"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateError      State = "error"
	StateHelp       State = "help"
	StateResults    State = "results"
)

// busyLabels are shown while work is in flight; a message never
// replaces them.
var busyLabels = map[State]string{
	StateSearching:  "Searching...",
	StateRetrieving: "Retrieving context...",
	StateGenerating: "Generating answer...",
}

// FromSession maps a conversation state onto a bar state.
func FromSession(s domain.SessionState) State {
	switch s {
	case domain.SessionAwaitingContext:
		return StateRetrieving
	case domain.SessionAwaitingAnswer:
		return StateGenerating
	default:
		return StateReady
	}
}

// Bar shows the current state on the left and key hints on the right.
// Hints are dropped first when the terminal is too narrow for both.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	resultCount int
	hints       []key.Binding
	width       int
}

func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

func (s *Bar) View() string {
	left := s.status()
	right := s.hintLine()

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right, gap = "", 1
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

// Busy reports whether the bar shows in-flight work.
func (s *Bar) Busy() bool {
	_, ok := busyLabels[s.state]
	return ok
}

func (s *Bar) status() string {
	if label, ok := busyLabels[s.state]; ok {
		return s.styles.Muted.Render(label)
	}

	switch {
	case s.state == StateError && s.message != "":
		return s.styles.Error.Render("Error: " + s.message)
	case s.state == StateError:
		return s.styles.Error.Render("Error")
	case s.state == StateHelp:
		return s.styles.Normal.Render("Help")
	case s.message != "":
		return s.styles.Normal.Render(s.message)
	case s.resultCount > 0:
		return s.styles.Normal.Render(fmt.Sprintf("%d results", s.resultCount))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) hintLine() string {
	bindings := s.hints
	switch {
	case bindings != nil:
	case s.state == StateResults && s.resultCount > 0:
		bindings = s.keymap.ResultsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Help().Key + ": " + b.Help().Desc
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

func (s *Bar) SetState(state State)  { s.state = state }
func (s *Bar) State() State          { return s.state }
func (s *Bar) SetMessage(msg string) { s.message = msg }
func (s *Bar) Message() string       { return s.message }
func (s *Bar) SetResultCount(n int)  { s.resultCount = n }
func (s *Bar) ResultCount() int      { return s.resultCount }
func (s *Bar) SetWidth(width int)    { s.width = width }
func (s *Bar) Width() int            { return s.width }

// SetHints fixes the key hints. Nil restores the state-based hints.
func (s *Bar) SetHints(b []key.Binding) { s.hints = b }

// Clear returns to the ready state with no message or count.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.resultCount = 0
}

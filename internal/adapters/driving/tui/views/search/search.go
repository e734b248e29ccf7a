// Package search is the TUI screen for querying the index without
// generating an answer.
package search

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// DefaultK is the number of passages a search returns.
const DefaultK = 10

// ErrNoSearchService is reported when a search runs without a retrieval
// service behind the view.
var ErrNoSearchService = errors.New("search service is required")

// chromeHeight is the rows taken by the header, input and status bar.
const chromeHeight = 10

// View is a query input above a list of scored passages. Typing goes to
// the input until a search runs; the keys then navigate the results.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Input
	list      *list.ResultList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	ctx       context.Context
	k         int
	rerank    bool

	lastQuery string
	seq       int // of the search whose results are awaited
	typing    bool
	ready     bool
	err       error
}

func NewView(s *styles.Styles, km *keymap.KeyMap, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewSearchInput(s),
		list:      list.NewResultList(s),
		statusbar: status.NewBar(s, km),
		retrieval: retrieval,
		ctx:       context.Background(),
		k:         DefaultK,
		typing:    true,
	}
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithK sets how many passages a search returns. Non-positive values are
// ignored.
func (v *View) WithK(k int) *View {
	if k > 0 {
		v.k = k
	}
	return v
}

func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		if v.typing {
			return v.handleTyping(msg)
		}
		return v.handleBrowsing(msg)
	case tea.MouseMsg:
		v.list, cmd = v.list.Update(msg)
	case messages.SearchCompleted:
		if msg.Seq != v.seq {
			return v, nil
		}
		if msg.Err != nil {
			v.fail(msg.Err)
			return v, nil
		}
		v.showResults(msg.Results)
	case messages.ErrorOccurred:
		v.fail(msg.Err)
	default:
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleTyping(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return v, back
	case tea.KeyEnter:
		query := v.input.Value()
		if query == "" {
			return v, nil
		}
		v.typing = false
		v.input.Blur()
		return v, v.search(query)
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleBrowsing(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		// Collapse an expanded passage before leaving.
		if v.list.Expanded() {
			v.list.ToggleExpanded()
			return v, nil
		}
		return v, back
	}

	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Select):
		v.list.ToggleExpanded()
	case keymap.Matches(key, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(key, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(key, v.keymap.Rerank):
		v.rerank = !v.rerank
		if v.lastQuery != "" {
			return v, v.search(v.lastQuery)
		}
	case keymap.Matches(key, v.keymap.NewSearch):
		v.typing = true
		v.input.SetValue("")
		return v, v.input.Focus()
	default:
		var cmd tea.Cmd
		v.list, cmd = v.list.Update(msg)
		return v, cmd
	}
	return v, nil
}

func back() tea.Msg {
	return messages.ViewChanged{View: messages.ViewMenu}
}

// search starts a retrieval for query with the current mode. Results of
// any earlier search still running are discarded on arrival.
func (v *View) search(query string) tea.Cmd {
	v.seq++
	v.lastQuery = query
	v.statusbar.SetState(status.StateSearching)

	seq, ctx, svc := v.seq, v.ctx, v.retrieval
	opts := domain.SearchOptions{K: v.k, Rerank: v.rerank, RerankWeight: domain.DefaultRerankWeight}
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		results, err := svc.Search(ctx, query, opts)
		return messages.SearchCompleted{Seq: seq, Results: results, Err: err}
	}
}

func (v *View) showResults(results []domain.SearchResult) {
	v.err = nil
	v.list.SetResults(results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetResultCount(len(results))
	v.typing = false
	v.input.Blur()
}

func (v *View) fail(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	mode := "dense"
	if v.rerank {
		mode = "dense + lexical rerank"
	}
	rows := []string{
		v.styles.Title.Render("Search the GDPR") + "  " + v.styles.Muted.Render(mode),
		"",
		v.input.View(),
		"",
	}
	if v.err != nil {
		rows = append(rows, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	rows = append(rows, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *View) SetDimensions(width, height int) {
	v.ready = true
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-chromeHeight)
	v.statusbar.SetWidth(width)
}

func (v *View) Ready() bool                          { return v.ready }
func (v *View) Query() string                        { return v.input.Value() }
func (v *View) SetQuery(query string)                { v.input.SetValue(query) }
func (v *View) Results() []domain.SearchResult       { return v.list.Results() }
func (v *View) SelectedIndex() int                   { return v.list.Selected() }
func (v *View) SelectedResult() *domain.SearchResult { return v.list.SelectedResult() }
func (v *View) Expanded() bool                       { return v.list.Expanded() }
func (v *View) Rerank() bool                         { return v.rerank }
func (v *View) Err() error                           { return v.err }
func (v *View) InputFocused() bool                   { return v.typing }

// Reset returns to an empty query with the input focused.
func (v *View) Reset() {
	v.typing = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.lastQuery = ""
	v.err = nil
	v.statusbar.Clear()
}

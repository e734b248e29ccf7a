// Package list renders ranked search results.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// linesPerResult is the height of one collapsed entry: title, source
// and preview.
const linesPerResult = 3

// ResultList shows results three lines each. Expanding the selected one
// shows its full text in a scrollable pane; up and down then scroll the
// pane instead of moving the selection.
type ResultList struct {
	styles   *styles.Styles
	results  []domain.SearchResult
	selected int
	expanded bool
	pane     viewport.Model
	width    int
	height   int
}

func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	r := &ResultList{styles: s, pane: viewport.New(80, 8)}
	r.SetDimensions(80, 10)
	return r
}

// Update handles navigation keys and mouse wheel scrolling.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		case "pgup":
			r.pane.ScrollUp(r.pane.Height)
		case "pgdown":
			r.pane.ScrollDown(r.pane.Height)
		}
	case tea.MouseMsg:
		if r.expanded {
			var cmd tea.Cmd
			r.pane, cmd = r.pane.Update(msg)
			return r, cmd
		}
	}
	return r, nil
}

func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	header := r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results)))
	if r.expanded {
		return header + "\n\n" + r.viewExpanded()
	}

	visible := max((r.height-4)/linesPerResult, 1)
	start := max(r.selected-visible+1, 0)
	end := min(start+visible, len(r.results))

	entries := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, r.entry(i))
	}
	return header + "\n\n" + strings.Join(entries, "\n")
}

func (r *ResultList) entry(i int) string {
	res := r.results[i]
	cite := domain.Citation{Text: res.Text, Metadata: res.Metadata}

	titleWidth := max(r.width-20, 10)
	title := domain.Clip(cite.Title(), titleWidth-3)
	score := fmt.Sprintf("%.3f", res.Score)

	var head string
	if i == r.selected {
		head = r.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", titleWidth, title, score))
	} else {
		head = r.styles.Normal.Render(fmt.Sprintf("  %-*s  ", titleWidth, title)) + r.styles.Muted.Render(score)
	}

	preview := domain.Clip(strings.Join(strings.Fields(res.Text), " "), max(r.width-9, 20))
	return head + "\n" +
		r.styles.Subtitle.Render("    "+cite.Source()) + "\n" +
		r.styles.Muted.Render("    "+preview)
}

func (r *ResultList) viewExpanded() string {
	res := r.results[r.selected]
	cite := domain.Citation{Text: res.Text, Metadata: res.Metadata}

	head := r.styles.PanelHeader.Render(cite.Source()) + "  " + r.styles.Muted.Render(cite.Title())
	out := head + "\n" + r.pane.View()
	if !r.pane.AtTop() || !r.pane.AtBottom() {
		out += "\n" + r.styles.Help.Render(fmt.Sprintf("%3.0f%%  pgup/pgdn to scroll", r.pane.ScrollPercent()*100))
	}
	return out
}

// fillPane renders the selected result's text into the pane.
func (r *ResultList) fillPane() {
	res := r.SelectedResult()
	if res == nil {
		r.pane.SetContent("")
		return
	}
	r.pane.SetContent(r.styles.Panel.Width(max(r.width-4, 20)).Render(res.Text))
	r.pane.GotoTop()
}

// SetResults replaces the results, selecting the first and collapsing.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
	r.expanded = false
}

func (r *ResultList) Results() []domain.SearchResult { return r.results }
func (r *ResultList) Selected() int                  { return r.selected }
func (r *ResultList) Expanded() bool                 { return r.expanded }
func (r *ResultList) Count() int                     { return len(r.results) }
func (r *ResultList) IsEmpty() bool                  { return len(r.results) == 0 }

// SetSelected ignores out of range indexes.
func (r *ResultList) SetSelected(i int) {
	if i >= 0 && i < len(r.results) {
		r.selected = i
	}
}

// SelectedResult returns nil when the list is empty.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// ToggleExpanded does nothing on an empty list.
func (r *ResultList) ToggleExpanded() {
	if len(r.results) == 0 {
		return
	}
	r.expanded = !r.expanded
	if r.expanded {
		r.fillPane()
	}
}

func (r *ResultList) MoveUp() {
	switch {
	case r.expanded:
		r.pane.ScrollUp(1)
	case r.selected > 0:
		r.selected--
	}
}

func (r *ResultList) MoveDown() {
	switch {
	case r.expanded:
		r.pane.ScrollDown(1)
	case r.selected < len(r.results)-1:
		r.selected++
	}
}

// SetDimensions sizes the list; the expanded pane leaves room for the
// header, source line and scroll hint.
func (r *ResultList) SetDimensions(width, height int) {
	r.width, r.height = width, height
	r.pane.Width = width
	r.pane.Height = max(height-5, 3)
	if r.expanded {
		r.fillPane()
	}
}

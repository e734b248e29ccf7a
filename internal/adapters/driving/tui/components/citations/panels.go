// Package citations renders the source passages behind an answer as
// collapsible panels.
package citations

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// collapsedPreview is how much of a passage a collapsed panel shows.
const collapsedPreview = 160

// Panels displays one panel per citation, headed by source and title.
type Panels struct {
	styles    *styles.Styles
	citations []domain.Citation
	expanded  bool
	width     int
}

// New creates an empty, collapsed panel set.
func New(s *styles.Styles) *Panels {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Panels{styles: s, width: 80}
}

// SetCitations replaces the displayed citations and collapses the panels.
func (p *Panels) SetCitations(c []domain.Citation) {
	p.citations = c
	p.expanded = false
}

// Citations returns the displayed citations.
func (p *Panels) Citations() []domain.Citation {
	return p.citations
}

// Toggle expands or collapses the panels.
func (p *Panels) Toggle() {
	p.expanded = !p.expanded
}

// Expanded reports whether full passages are shown.
func (p *Panels) Expanded() bool {
	return p.expanded
}

// SetWidth sets the rendering width.
func (p *Panels) SetWidth(width int) {
	p.width = width
}

// View renders the panels, or nothing when there are no citations.
func (p *Panels) View() string {
	if len(p.citations) == 0 {
		return ""
	}

	lines := make([]string, 0, len(p.citations)+1)
	lines = append(lines, p.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(p.citations))))

	bodyWidth := max(p.width-4, 20)
	for i, c := range p.citations {
		header := p.styles.PanelHeader.Render(fmt.Sprintf("[%d] %s", i+1, c.Source())) +
			"  " + p.styles.Muted.Render(c.Title())

		text := c.Text
		if !p.expanded {
			text = domain.Clip(strings.Join(strings.Fields(text), " "), collapsedPreview)
		}
		lines = append(lines, p.styles.Panel.Width(bodyWidth).Render(header+"\n"+text))
	}
	return strings.Join(lines, "\n")
}

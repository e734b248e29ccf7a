package citations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func strPtr(s string) *string {
	return &s
}

func TestPanels_Empty(t *testing.T) {
	p := New(nil)
	assert.Empty(t, p.View())
	assert.False(t, p.Expanded())
}

func TestPanels_View(t *testing.T) {
	p := New(nil)
	p.SetWidth(120)
	p.SetCitations([]domain.Citation{
		{
			Text: "Personal data shall be processed lawfully, fairly and in a transparent manner.",
			Metadata: domain.ChunkMetadata{
				Filename:    strPtr("gdpr.pdf"),
				PageNumbers: []int{35, 36},
				Title:       strPtr("Article 5"),
			},
		},
		{Text: "Untitled passage"},
	})

	view := p.View()
	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "[1] gdpr.pdf - p. 35, 36")
	assert.Contains(t, view, "Article 5")
	assert.Contains(t, view, "[2] "+domain.UnknownSource)
	assert.Contains(t, view, domain.UntitledSection)
}

func TestPanels_Toggle(t *testing.T) {
	long := strings.Repeat("controller ", 40) + "END"
	p := New(nil)
	p.SetWidth(400)
	p.SetCitations([]domain.Citation{{Text: long}})

	assert.NotContains(t, p.View(), "END")

	p.Toggle()
	assert.True(t, p.Expanded())
	assert.Contains(t, p.View(), "END")

	p.SetCitations([]domain.Citation{{Text: long}})
	assert.False(t, p.Expanded(), "new citations start collapsed")
}

// Package markdown extracts Markdown files into structured documents.
// ATX headings become section headers, blank-line separated blocks become
// paragraphs, and list items keep their own items. Markdown carries no page
// information, so items have no provenance.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Name identifies this extractor.
const Name = "markdown"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	listItemRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	fenceRe     = regexp.MustCompile("^\\s*(```|~~~)")
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	images      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasis    = regexp.MustCompile(`(\*\*|__|\*)`)
	blockquote  = regexp.MustCompile(`^>\s?`)
	horizontalR = regexp.MustCompile(`^[-*_]{3,}\s*$`)
)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Supports reports whether path is a Markdown file.
func (e *Extractor) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Extract reads and parses the Markdown file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.StructuredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	return Parse(string(data), filepath.Base(path)), nil
}

// Parse converts Markdown content into a structured document.
func Parse(content, filename string) *domain.StructuredDocument {
	p := parser{}
	inFence := false
	var code []string

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if fenceRe.MatchString(line) {
			if inFence {
				p.add(domain.LabelCode, strings.Join(code, "\n"), 0)
				code = nil
			} else {
				p.flush()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || horizontalR.MatchString(trimmed):
			p.flush()
		case headingRe.MatchString(trimmed):
			p.flush()
			m := headingRe.FindStringSubmatch(trimmed)
			p.add(domain.LabelSectionHeader, stripInline(m[2]), len(m[1]))
		case listItemRe.MatchString(line):
			p.flush()
			p.pending = []string{listItemRe.ReplaceAllString(line, "")}
			p.label = domain.LabelListItem
		default:
			if len(p.pending) == 0 {
				p.label = domain.LabelParagraph
			}
			p.pending = append(p.pending, blockquote.ReplaceAllString(trimmed, ""))
		}
	}
	if inFence {
		p.add(domain.LabelCode, strings.Join(code, "\n"), 0)
	}
	p.flush()

	return &domain.StructuredDocument{
		Name:     strings.TrimSuffix(filename, filepath.Ext(filename)),
		Filename: filename,
		Items:    p.items,
	}
}

type parser struct {
	items   []domain.ContentItem
	pending []string
	label   domain.ItemLabel
}

func (p *parser) flush() {
	if len(p.pending) == 0 {
		return
	}
	p.add(p.label, stripInline(strings.Join(p.pending, " ")), 0)
	p.pending = nil
}

func (p *parser) add(label domain.ItemLabel, text string, level int) {
	if strings.TrimSpace(text) == "" {
		return
	}
	p.items = append(p.items, domain.ContentItem{
		Ref:   "#/texts/" + strconv.Itoa(len(p.items)),
		Label: label,
		Text:  text,
		Level: level,
	})
}

// stripInline removes inline Markdown formatting.
func stripInline(s string) string {
	s = images.ReplaceAllString(s, "")
	s = links.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

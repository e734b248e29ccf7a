// Package chunker provides the hybrid chunking processor.
//
// Chunking runs in two passes. The hierarchical pass emits one chunk per
// body content item and records the heading path it sits under. The peer
// merge pass then folds each chunk into the nearest preceding one when
// both share the heading path and the joined text still fits the token
// budget. Content items are never split, so an item that alone exceeds
// the budget becomes an oversized chunk of its own.
package chunker

import (
	"context"
	"slices"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Name is the registry name of the processor.
const Name = "hybrid_chunker"

// Delimiter joins the texts of merged items.
const Delimiter = "\n"

// Processor splits structured documents into token-bounded chunks.
// It implements the PostProcessor interface.
type Processor struct {
	tokenizer  driven.Tokenizer
	maxTokens  int
	mergePeers bool
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithMergePeers enables or disables the peer merge pass.
func WithMergePeers(enabled bool) Option {
	return func(p *Processor) {
		p.mergePeers = enabled
	}
}

// New creates a chunker counting tokens with tokenizer.
func New(tokenizer driven.Tokenizer, opts ...Option) *Processor {
	p := &Processor{
		tokenizer:  tokenizer,
		maxTokens:  domain.MaxTokens,
		mergePeers: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// MaxTokens returns the token budget.
func (p *Processor) MaxTokens() int {
	return p.maxTokens
}

// Process chunks the document. Input chunks are ignored; this processor
// creates new chunks from the document's content items.
func (p *Processor) Process(ctx context.Context, doc *domain.StructuredDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil || len(doc.Items) == 0 {
		return nil, nil
	}

	chunks, err := p.hierarchical(ctx, doc)
	if err != nil {
		return nil, err
	}
	if p.mergePeers {
		chunks = p.merge(chunks)
	}
	return chunks, nil
}

type heading struct {
	level int
	text  string
}

// hierarchical emits one chunk per non-heading item in document order.
func (p *Processor) hierarchical(ctx context.Context, doc *domain.StructuredDocument) ([]domain.Chunk, error) {
	var (
		path   []heading
		chunks = make([]domain.Chunk, 0, len(doc.Items))
	)

	for _, item := range doc.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.Label.IsFurniture() {
			continue
		}

		text := strings.TrimSpace(item.Text)

		if item.Label.IsHeading() {
			if text != "" {
				path = enter(path, headingLevel(item), text)
			}
			continue
		}

		chunks = append(chunks, domain.Chunk{
			Text:           text,
			TokenCount:     p.tokenizer.Count(text),
			DocItems:       []domain.ItemRef{item.ItemRef()},
			Headings:       headingTexts(path),
			OriginFilename: doc.Filename,
		})
	}

	return chunks, nil
}

// merge folds chunks into their nearest preceding peer while the budget allows.
func (p *Processor) merge(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(chunks))

	for _, c := range chunks {
		if n := len(out); n > 0 && slices.Equal(out[n-1].Headings, c.Headings) {
			prev := &out[n-1]
			text := join(prev.Text, c.Text)
			if count := p.tokenizer.Count(text); count <= p.maxTokens {
				prev.Text = text
				prev.TokenCount = count
				prev.DocItems = append(prev.DocItems, c.DocItems...)
				continue
			}
		}
		out = append(out, c)
	}

	return out
}

// headingLevel maps a heading item to its depth. Titles sit above all
// section headers.
func headingLevel(item domain.ContentItem) int {
	if item.Label == domain.LabelTitle {
		return 0
	}
	if item.Level < 1 {
		return 1
	}
	return item.Level
}

// enter pushes a heading, dropping any heading at the same or a deeper level.
func enter(path []heading, level int, text string) []heading {
	kept := make([]heading, 0, len(path)+1)
	for _, h := range path {
		if h.level < level {
			kept = append(kept, h)
		}
	}
	return append(kept, heading{level: level, text: text})
}

func headingTexts(path []heading) []string {
	if len(path) == 0 {
		return nil
	}
	texts := make([]string, len(path))
	for i, h := range path {
		texts[i] = h.text
	}
	return texts
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + Delimiter + b
	}
}

package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Name() string             { return "words" }
func (wordTokenizer) Encode(text string) []int { return make([]int, len(strings.Fields(text))) }
func (wordTokenizer) Count(text string) int    { return len(strings.Fields(text)) }

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func para(ref, text string, pages ...int) domain.ContentItem {
	prov := make([]domain.Provenance, len(pages))
	for i, p := range pages {
		prov[i] = domain.Provenance{PageNo: p}
	}
	return domain.ContentItem{Ref: ref, Label: domain.LabelText, Text: text, Prov: prov}
}

func section(level int, text string) domain.ContentItem {
	return domain.ContentItem{Label: domain.LabelSectionHeader, Level: level, Text: text}
}

func TestNew_Defaults(t *testing.T) {
	p := New(wordTokenizer{})
	if p.MaxTokens() != domain.MaxTokens {
		t.Errorf("expected max tokens %d, got %d", domain.MaxTokens, p.MaxTokens())
	}
	if !p.mergePeers {
		t.Error("expected peer merge enabled by default")
	}
	if p.Name() != "hybrid_chunker" {
		t.Errorf("unexpected name %q", p.Name())
	}

	p = New(wordTokenizer{}, WithMaxTokens(0), WithMergePeers(false))
	if p.MaxTokens() != domain.MaxTokens {
		t.Error("zero max tokens should be ignored")
	}
	if p.mergePeers {
		t.Error("expected peer merge disabled")
	}
}

func TestProcess_ThreeParagraphsUnderOneHeading(t *testing.T) {
	doc := &domain.StructuredDocument{
		Filename: "gdpr.pdf",
		Items: []domain.ContentItem{
			section(1, "Art. 5"),
			para("#/texts/1", words(50, "lawful"), 36),
			para("#/texts/2", words(50, "fair"), 35),
			para("#/texts/3", words(50, "transparent"), 36),
		},
	}

	chunks, err := New(wordTokenizer{}).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	c := chunks[0]
	if c.TokenCount != 150 {
		t.Errorf("expected 150 tokens, got %d", c.TokenCount)
	}
	if len(c.DocItems) != 3 {
		t.Errorf("expected 3 doc items, got %d", len(c.DocItems))
	}
	if c.OriginFilename != "gdpr.pdf" {
		t.Errorf("unexpected filename %q", c.OriginFilename)
	}

	meta := domain.DeriveMetadata(c)
	if !reflect.DeepEqual(meta.PageNumbers, []int{35, 36}) {
		t.Errorf("expected pages [35 36], got %v", meta.PageNumbers)
	}
	if meta.Title == nil || *meta.Title != "Art. 5" {
		t.Errorf("expected title Art. 5, got %v", meta.Title)
	}
}

func TestProcess_BudgetClosesChunk(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		section(1, "Art. 6"),
		para("a", words(50, "a")),
		para("b", words(50, "b")),
		para("c", words(50, "c")),
	}}

	chunks, err := New(wordTokenizer{}, WithMaxTokens(100)).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].TokenCount != 100 || chunks[1].TokenCount != 50 {
		t.Errorf("unexpected token counts %d, %d", chunks[0].TokenCount, chunks[1].TokenCount)
	}
	if chunks[1].DocItems[0].Ref != "c" {
		t.Errorf("expected last chunk to start at item c, got %s", chunks[1].DocItems[0].Ref)
	}
}

func TestProcess_OversizedItemStaysWhole(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		para("small", words(10, "x")),
		para("huge", words(150, "y")),
		para("tail", words(10, "z")),
	}}

	chunks, err := New(wordTokenizer{}, WithMaxTokens(100)).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].TokenCount != 150 || len(chunks[1].DocItems) != 1 {
		t.Errorf("expected the oversized item alone, got %d tokens over %d items", chunks[1].TokenCount, len(chunks[1].DocItems))
	}
}

func TestProcess_TokenBudgetProperty(t *testing.T) {
	var items []domain.ContentItem
	for i := 0; i < 40; i++ {
		if i%7 == 0 {
			items = append(items, section(1+i%2, "Section"+string(rune('A'+i%26))))
		}
		items = append(items, para("", words(5+(i*13)%45, "w")))
	}
	items = append(items, para("big", words(90, "big")))

	const budget = 60
	chunks, err := New(wordTokenizer{}, WithMaxTokens(budget)).Process(context.Background(), &domain.StructuredDocument{Items: items}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, c := range chunks {
		if c.TokenCount != (wordTokenizer{}).Count(c.Text) {
			t.Errorf("chunk %d: token count %d does not match text", i, c.TokenCount)
		}
		if c.TokenCount > budget && len(c.DocItems) != 1 {
			t.Errorf("chunk %d: %d tokens over %d items exceeds budget", i, c.TokenCount, len(c.DocItems))
		}
	}
}

func TestProcess_PreservesItemOrder(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		section(1, "Chapter I"),
		para("1", "one"),
		para("2", "two"),
		section(1, "Chapter II"),
		para("3", "three"),
		section(2, "Art. 5"),
		para("4", "four"),
		section(1, "Chapter I"),
		para("5", "five"),
	}}

	chunks, err := New(wordTokenizer{}).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var refs []string
	for _, c := range chunks {
		for _, item := range c.DocItems {
			refs = append(refs, item.Ref)
		}
	}
	if !reflect.DeepEqual(refs, []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("items reordered: %v", refs)
	}
	if len(chunks) != 4 {
		t.Errorf("expected 4 chunks (sections are not merged across), got %d", len(chunks))
	}
}

func TestProcess_HeadingPath(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		{Label: domain.LabelTitle, Text: "GDPR"},
		section(1, "Chapter II"),
		section(2, "Art. 5"),
		para("a", "principles"),
		section(2, "Art. 6"),
		para("b", "lawfulness"),
		section(1, "Chapter III"),
		para("c", "rights"),
		{Label: domain.LabelTitle, Text: "Annex"},
		para("d", "annex text"),
	}}

	chunks, err := New(wordTokenizer{}).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{
		{"GDPR", "Chapter II", "Art. 5"},
		{"GDPR", "Chapter II", "Art. 6"},
		{"GDPR", "Chapter III"},
		{"Annex"},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if !reflect.DeepEqual(chunks[i].Headings, want[i]) {
			t.Errorf("chunk %d: expected headings %v, got %v", i, want[i], chunks[i].Headings)
		}
	}
}

func TestProcess_MergeDisabled(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		section(1, "Art. 7"),
		para("a", "consent"),
		para("b", "withdrawal"),
	}}

	chunks, err := New(wordTokenizer{}, WithMergePeers(false)).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected one chunk per item, got %d", len(chunks))
	}
}

func TestProcess_SkipsFurnitureAndHeadingText(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		{Label: domain.LabelPageHeader, Text: "Official Journal of the European Union"},
		section(1, "Art. 1"),
		para("a", "subject matter"),
		{Label: domain.LabelPageFooter, Text: "L 119/33"},
	}}

	chunks, err := New(wordTokenizer{}).Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "subject matter" {
		t.Errorf("unexpected chunks %+v", chunks)
	}
}

func TestProcess_EmptyDocument(t *testing.T) {
	p := New(wordTokenizer{})

	for _, doc := range []*domain.StructuredDocument{nil, {}, {Items: []domain.ContentItem{section(1, "Only a heading")}}} {
		chunks, err := p.Process(context.Background(), doc, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Errorf("expected no chunks, got %d", len(chunks))
		}
	}
}

func TestProcess_Deterministic(t *testing.T) {
	doc := &domain.StructuredDocument{Items: []domain.ContentItem{
		section(1, "Art. 9"),
		para("a", words(30, "special")),
		para("b", words(30, "categories")),
		para("c", words(30, "data")),
	}}
	p := New(wordTokenizer{}, WithMaxTokens(70))

	first, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking is not deterministic")
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(wordTokenizer{}).Process(ctx, &domain.StructuredDocument{Items: []domain.ContentItem{para("a", "x")}}, nil)
	if err == nil {
		t.Error("expected context error")
	}
}

package postprocessors

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.StructuredDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Name() string             { return "words" }
func (wordTokenizer) Encode(text string) []int { return make([]int, len(strings.Fields(text))) }
func (wordTokenizer) Count(text string) int    { return len(strings.Fields(text)) }

func testDoc() *domain.StructuredDocument {
	return &domain.StructuredDocument{
		Name:     "gdpr",
		Filename: "gdpr.pdf",
		Items: []domain.ContentItem{
			{Ref: "#/texts/0", Label: domain.LabelSectionHeader, Level: 1, Text: "Art. 5"},
			{Ref: "#/texts/1", Label: domain.LabelText, Text: "Lawfulness, fairness and transparency.", Prov: []domain.Provenance{{PageNo: 35}}},
			{Ref: "#/texts/2", Label: domain.LabelText, Text: "   ", Prov: []domain.Provenance{{PageNo: 35}}},
		},
	}
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	p := NewPipeline()

	if _, err := p.Process(context.Background(), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil document, got %v", err)
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks from empty pipeline, got %v", chunks)
	}
}

func TestPipeline_Process_MultipleProcessors(t *testing.T) {
	second := []domain.Chunk{{Text: "modified", OriginFilename: "gdpr.pdf"}, {Text: "added", OriginFilename: "gdpr.pdf"}}

	p := NewPipeline(
		&mockProcessor{name: "first", chunks: []domain.Chunk{{Text: "first"}}},
		&mockProcessor{name: "second", chunks: second},
		&mockProcessor{name: "passthrough"},
	)

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(chunks, second) {
		t.Errorf("expected %v, got %v", second, chunks)
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"first", "second", "passthrough"}) {
		t.Errorf("unexpected names %v", got)
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")

	p := NewPipeline(&mockProcessor{name: "failing", err: expectedErr})

	_, err := p.Process(context.Background(), testDoc())
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error, got: %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "failing") {
		t.Errorf("expected processor name in error, got: %v", err)
	}
}

func TestPipeline_Process_FillsOriginFilename(t *testing.T) {
	p := NewPipeline(&mockProcessor{name: "bare", chunks: []domain.Chunk{
		{Text: "Art. 17"},
		{Text: "Annex", OriginFilename: "annex.pdf"},
	}})

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].OriginFilename != "gdpr.pdf" || chunks[1].OriginFilename != "annex.pdf" {
		t.Errorf("unexpected origins %q, %q", chunks[0].OriginFilename, chunks[1].OriginFilename)
	}
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&mockProcessor{name: "never"})
	if _, err := p.Process(ctx, testDoc()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultPipeline_ChunksAndDropsEmpty(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, wordTokenizer{})

	cfg := domain.DefaultPipelineConfig()
	cfg.ProcessorConfigs["hybrid_chunker"]["merge_peers"] = false

	p, err := r.BuildPipeline(cfg)
	if err != nil {
		t.Fatalf("BuildPipeline failed: %v", err)
	}

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk after dropping the blank item, got %d", len(chunks))
	}
	if chunks[0].Text != "Lawfulness, fairness and transparency." {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
	if !reflect.DeepEqual(chunks[0].Headings, []string{"Art. 5"}) {
		t.Errorf("unexpected headings %v", chunks[0].Headings)
	}
}

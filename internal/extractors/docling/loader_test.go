package docling

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func loadSample(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample.json"))
	require.NoError(t, err)
	return data
}

func TestParse_ReadingOrder(t *testing.T) {
	doc, err := Parse(loadSample(t), "fallback.pdf")
	require.NoError(t, err)

	assert.Equal(t, "gdpr", doc.Name)
	assert.Equal(t, "gdpr.pdf", doc.Filename)

	refs := make([]string, len(doc.Items))
	for i, item := range doc.Items {
		refs[i] = item.Ref
	}
	// Furniture (#/texts/0, #/texts/6) is skipped; groups and pictures expand in place.
	assert.Equal(t, []string{
		"#/texts/1", "#/texts/2", "#/texts/3", "#/texts/4", "#/tables/0", "#/texts/5",
	}, refs)
}

func TestParse_ItemFields(t *testing.T) {
	doc, err := Parse(loadSample(t), "")
	require.NoError(t, err)

	heading := doc.Items[0]
	assert.Equal(t, domain.LabelSectionHeader, heading.Label)
	assert.Equal(t, 1, heading.Level)
	assert.Equal(t, "Article 17", heading.Text)
	require.Len(t, heading.Prov, 1)
	assert.Equal(t, 43, heading.Prov[0].PageNo)
	require.NotNil(t, heading.Prov[0].BBox)
	assert.InDelta(t, 10.5, heading.Prov[0].BBox.Left, 1e-9)
	assert.Equal(t, "BOTTOMLEFT", heading.Prov[0].BBox.CoordOrigin)

	table := doc.Items[4]
	assert.Equal(t, domain.LabelTable, table.Label)
	assert.Equal(t, "Article | Right\n17 | Erasure", table.Text)
	assert.Equal(t, 44, table.Prov[0].PageNo)
}

func TestParse_FallbackFilename(t *testing.T) {
	data := []byte(`{"texts": [{"self_ref": "#/texts/0", "label": "text", "text": "Recital 1"}]}`)

	doc, err := Parse(data, "recitals.json")
	require.NoError(t, err)
	assert.Equal(t, "recitals.json", doc.Filename)
	assert.Equal(t, "recitals", doc.Name)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "Recital 1", doc.Items[0].Text)
	assert.Empty(t, doc.Items[0].Prov)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{texts:`},
		{"missing texts", `{"name": "gdpr"}`},
		{"item without label", `{"texts": [{"self_ref": "#/texts/0"}]}`},
		{"zero page number", `{"texts": [{"self_ref": "#/texts/0", "label": "text", "prov": [{"page_no": 0}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "x.json")
			assert.ErrorIs(t, err, domain.ErrExtractionFailed)
		})
	}
}

func TestParse_IgnoresDanglingAndRepeatedRefs(t *testing.T) {
	data := []byte(`{
		"body": {"children": [{"$ref": "#/texts/0"}, {"$ref": "#/texts/0"}, {"$ref": "#/texts/9"}, {"$ref": "bogus"}]},
		"texts": [{"self_ref": "#/texts/0", "label": "text", "text": "once"}]
	}`)

	doc, err := Parse(data, "x.json")
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "once", doc.Items[0].Text)
}

func TestExtractor(t *testing.T) {
	e := New()
	assert.Equal(t, Name, e.Name())
	assert.True(t, e.Supports("data/extracted/gdpr.JSON"))
	assert.False(t, e.Supports("data/pdf/gdpr.pdf"))

	doc, err := e.Extract(context.Background(), filepath.Join("testdata", "sample.json"))
	require.NoError(t, err)
	assert.Len(t, doc.Items, 6)

	_, err = e.Extract(context.Background(), filepath.Join("testdata", "missing.json"))
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestSplitRef(t *testing.T) {
	kind, idx, ok := splitRef("#/tables/3")
	assert.True(t, ok)
	assert.Equal(t, "tables", kind)
	assert.Equal(t, 3, idx)

	_, _, ok = splitRef("#/body")
	assert.False(t, ok)
	_, _, ok = splitRef("#/texts/-1")
	assert.False(t, ok)
}

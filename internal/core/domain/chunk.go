package domain

import (
	"sort"
	"strings"
	"time"
)

// MaxTokens is the default chunk token budget. It matches the input limit
// of the text-embedding-3 models.
const MaxTokens = 8191

// ItemRef references a content item from a chunk.
type ItemRef struct {
	Ref   string
	Label ItemLabel
	Prov  []Provenance
}

// Chunk is a bounded-size span of document text with provenance.
// Chunks are created once per extraction run and never mutated.
type Chunk struct {
	// Text is the chunk body. Headings are not part of it.
	Text string

	// TokenCount is the token count of Text as reported by the tokenizer.
	TokenCount int

	// DocItems are the content items merged into this chunk, in order.
	DocItems []ItemRef

	// Headings is the heading path the chunk sits under, outermost first.
	Headings []string

	// OriginFilename is the source file the chunk was extracted from.
	OriginFilename string
}

// IsBlank reports whether the chunk has no visible text.
func (c Chunk) IsBlank() bool {
	return strings.TrimSpace(c.Text) == ""
}

// ChunkMetadata is the fixed-shape metadata stored next to every vector.
// Fields are declared in alphabetical order; the JSON encoding keeps that
// order so the stored schema is stable across runs.
type ChunkMetadata struct {
	Filename    *string `json:"filename"`
	PageNumbers []int   `json:"page_numbers"`
	Title       *string `json:"title"`
}

// DeriveMetadata computes a chunk's metadata. It is pure: the same chunk
// always yields an equal value.
func DeriveMetadata(c Chunk) ChunkMetadata {
	var meta ChunkMetadata

	if c.OriginFilename != "" {
		name := c.OriginFilename
		meta.Filename = &name
	}

	seen := make(map[int]struct{})
	for _, item := range c.DocItems {
		for _, p := range item.Prov {
			if _, ok := seen[p.PageNo]; ok {
				continue
			}
			seen[p.PageNo] = struct{}{}
			meta.PageNumbers = append(meta.PageNumbers, p.PageNo)
		}
	}
	sort.Ints(meta.PageNumbers)

	if len(c.Headings) > 0 && c.Headings[0] != "" {
		title := c.Headings[0]
		meta.Title = &title
	}

	return meta
}

// FilenameOr returns the filename or fallback when it is null.
func (m ChunkMetadata) FilenameOr(fallback string) string {
	if m.Filename == nil || *m.Filename == "" {
		return fallback
	}
	return *m.Filename
}

// TitleOr returns the title or fallback when it is null.
func (m ChunkMetadata) TitleOr(fallback string) string {
	if m.Title == nil || *m.Title == "" {
		return fallback
	}
	return *m.Title
}

// Equal reports whether two metadata values carry the same content.
func (m ChunkMetadata) Equal(o ChunkMetadata) bool {
	if m.FilenameOr("") != o.FilenameOr("") || m.TitleOr("") != o.TitleOr("") {
		return false
	}
	if (m.Filename == nil) != (o.Filename == nil) || (m.Title == nil) != (o.Title == nil) {
		return false
	}
	if len(m.PageNumbers) != len(o.PageNumbers) {
		return false
	}
	for i := range m.PageNumbers {
		if m.PageNumbers[i] != o.PageNumbers[i] {
			return false
		}
	}
	return true
}

// IndexRecord is one row of the vector table.
type IndexRecord struct {
	Text     string
	Vector   []float32
	Metadata ChunkMetadata
}

// IndexHandle describes a built vector table.
type IndexHandle struct {
	// Table is the logical table name, e.g. "docling".
	Table string

	// Rows is the number of rows after the build.
	Rows int

	// Dimensions is the vector size.
	Dimensions int

	// Model is the embedding model used for the build.
	Model string

	// BuiltAt is when the table was swapped in.
	BuiltAt time.Time
}

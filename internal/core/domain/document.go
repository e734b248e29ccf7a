package domain

import "strings"

// ItemLabel classifies a content item produced by an extractor.
type ItemLabel string

// Content item labels. The values follow the docling document model.
const (
	LabelTitle         ItemLabel = "title"
	LabelSectionHeader ItemLabel = "section_header"
	LabelParagraph     ItemLabel = "paragraph"
	LabelText          ItemLabel = "text"
	LabelListItem      ItemLabel = "list_item"
	LabelTable         ItemLabel = "table"
	LabelCaption       ItemLabel = "caption"
	LabelFootnote      ItemLabel = "footnote"
	LabelFormula       ItemLabel = "formula"
	LabelCode          ItemLabel = "code"
	LabelPageHeader    ItemLabel = "page_header"
	LabelPageFooter    ItemLabel = "page_footer"
)

// IsHeading reports whether the label starts a new section.
func (l ItemLabel) IsHeading() bool {
	return l == LabelTitle || l == LabelSectionHeader
}

// IsFurniture reports whether the label marks page furniture that is not
// part of the document body.
func (l ItemLabel) IsFurniture() bool {
	return l == LabelPageHeader || l == LabelPageFooter
}

// BoundingBox is an opaque position on a page.
type BoundingBox struct {
	Left        float64
	Top         float64
	Right       float64
	Bottom      float64
	CoordOrigin string
}

// Provenance ties a content item to a location in the source document.
type Provenance struct {
	// PageNo is the 1-based page number.
	PageNo int

	// BBox is the region on the page, when the extractor reports one.
	BBox *BoundingBox
}

// ContentItem is one paragraph, heading, list item or table of a
// structured document.
type ContentItem struct {
	// Ref is the extractor's stable reference, e.g. "#/texts/12".
	Ref string

	// Label classifies the item.
	Label ItemLabel

	// Text is the item's textual content. Tables are serialised row by row.
	Text string

	// Level is the heading depth for section headers (1-based).
	Level int

	// Prov lists where the item appears in the source.
	Prov []Provenance
}

// ItemRef returns a reference to the item suitable for storing in a Chunk.
func (c ContentItem) ItemRef() ItemRef {
	return ItemRef{Ref: c.Ref, Label: c.Label, Prov: c.Prov}
}

// StructuredDocument is the extractor output: an ordered sequence of
// content items. It is immutable once produced.
type StructuredDocument struct {
	// Name is the document name without extension.
	Name string

	// Filename is the origin file name, e.g. "gdpr.pdf".
	Filename string

	// Items are the body items in document order.
	Items []ContentItem
}

// IsEmpty reports whether the document has no item with text.
func (d *StructuredDocument) IsEmpty() bool {
	if d == nil {
		return true
	}
	for _, item := range d.Items {
		if strings.TrimSpace(item.Text) != "" {
			return false
		}
	}
	return true
}

// PipelineReport summarises one pipeline run.
type PipelineReport struct {
	// Documents is the number of successfully extracted documents.
	Documents int

	// Failed lists input paths whose extraction failed.
	Failed []string

	// Chunks is the number of chunks handed to the indexer.
	Chunks int

	// CacheHit is true when chunks were loaded from the chunk cache.
	CacheHit bool

	// CacheKey identifies the inputs and chunking parameters of the run.
	CacheKey string

	// Index describes the built index, nil when indexing was skipped.
	Index *IndexHandle
}

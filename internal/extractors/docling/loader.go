// Package docling reads documents exported by the docling converter in its
// lossless JSON format.
//
// The loader validates the export against an embedded JSON Schema, then
// walks the body tree in reading order. Groups and pictures are expanded
// in place, tables are serialised row by row with " | " between cells,
// and page furniture is skipped.
package docling

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://gdprqa.local/schemas/docling-document.json"

// CellSeparator joins table cells within a row.
const CellSeparator = " | "

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	errSchema  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc interface{}
		if err := json.Unmarshal(schemaJSON, &doc); err != nil {
			errSchema = fmt.Errorf("parse docling schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			errSchema = fmt.Errorf("add docling schema: %w", err)
			return
		}
		schema, errSchema = compiler.Compile(schemaURL)
	})
	return schema, errSchema
}

type ref struct {
	Ref string `json:"$ref"`
}

type node struct {
	SelfRef  string `json:"self_ref"`
	Children []ref  `json:"children"`
	Label    string `json:"label"`
}

type bbox struct {
	L           float64 `json:"l"`
	T           float64 `json:"t"`
	R           float64 `json:"r"`
	B           float64 `json:"b"`
	CoordOrigin string  `json:"coord_origin"`
}

type prov struct {
	PageNo int   `json:"page_no"`
	BBox   *bbox `json:"bbox"`
}

type textItem struct {
	node
	Text  string `json:"text"`
	Level int    `json:"level"`
	Prov  []prov `json:"prov"`
}

type tableCell struct {
	Text string `json:"text"`
}

type tableItem struct {
	node
	Prov []prov `json:"prov"`
	Data struct {
		Grid [][]tableCell `json:"grid"`
	} `json:"data"`
}

type document struct {
	Name   string `json:"name"`
	Origin struct {
		Filename string `json:"filename"`
	} `json:"origin"`
	Body     node        `json:"body"`
	Groups   []node      `json:"groups"`
	Texts    []textItem  `json:"texts"`
	Tables   []tableItem `json:"tables"`
	Pictures []node      `json:"pictures"`
}

// Parse converts a docling JSON export into a structured document.
// fallbackName is used for Filename when the export carries no origin.
func Parse(data []byte, fallbackName string) (*domain.StructuredDocument, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var inst interface{}
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrExtractionFailed, err)
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: not a docling document: %s", domain.ErrExtractionFailed, firstCause(verr))
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	var doc document
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	filename := doc.Origin.Filename
	if filename == "" {
		filename = fallbackName
	}
	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	w := walker{doc: &doc, seen: make(map[string]bool)}
	if len(doc.Body.Children) > 0 {
		w.visitAll(doc.Body.Children)
	} else {
		// Exports without a body tree: fall back to flat text order.
		for i := range doc.Texts {
			w.visit("#/texts/" + strconv.Itoa(i))
		}
	}

	return &domain.StructuredDocument{
		Name:     name,
		Filename: filename,
		Items:    w.items,
	}, nil
}

// ParseFile reads and parses a docling JSON file.
func ParseFile(path string) (*domain.StructuredDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	return Parse(data, filepath.Base(path))
}

type walker struct {
	doc   *document
	seen  map[string]bool
	items []domain.ContentItem
}

func (w *walker) visitAll(children []ref) {
	for _, c := range children {
		w.visit(c.Ref)
	}
}

func (w *walker) visit(r string) {
	// Guards against cyclic or repeated references.
	if w.seen[r] {
		return
	}
	w.seen[r] = true

	kind, idx, ok := splitRef(r)
	if !ok {
		return
	}
	switch kind {
	case "texts":
		if idx >= len(w.doc.Texts) {
			return
		}
		t := w.doc.Texts[idx]
		label := domain.ItemLabel(t.Label)
		if !label.IsFurniture() {
			w.items = append(w.items, domain.ContentItem{
				Ref:   t.SelfRef,
				Label: label,
				Text:  t.Text,
				Level: t.Level,
				Prov:  convertProv(t.Prov),
			})
		}
		w.visitAll(t.Children)
	case "tables":
		if idx >= len(w.doc.Tables) {
			return
		}
		t := w.doc.Tables[idx]
		w.items = append(w.items, domain.ContentItem{
			Ref:   t.SelfRef,
			Label: domain.LabelTable,
			Text:  serialiseGrid(t.Data.Grid),
			Prov:  convertProv(t.Prov),
		})
		w.visitAll(t.Children)
	case "groups":
		if idx < len(w.doc.Groups) {
			w.visitAll(w.doc.Groups[idx].Children)
		}
	case "pictures":
		if idx < len(w.doc.Pictures) {
			w.visitAll(w.doc.Pictures[idx].Children)
		}
	}
}

// splitRef parses "#/texts/12" into ("texts", 12).
func splitRef(r string) (string, int, bool) {
	parts := strings.Split(strings.TrimPrefix(r, "#/"), "/")
	if len(parts) != 2 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return parts[0], idx, true
}

func convertProv(in []prov) []domain.Provenance {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Provenance, len(in))
	for i, p := range in {
		out[i] = domain.Provenance{PageNo: p.PageNo}
		if p.BBox != nil {
			out[i].BBox = &domain.BoundingBox{
				Left:        p.BBox.L,
				Top:         p.BBox.T,
				Right:       p.BBox.R,
				Bottom:      p.BBox.B,
				CoordOrigin: p.BBox.CoordOrigin,
			}
		}
	}
	return out
}

func serialiseGrid(grid [][]tableCell) string {
	rows := make([]string, 0, len(grid))
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c.Text)
		}
		rows = append(rows, strings.Join(cells, CellSeparator))
	}
	return strings.Join(rows, "\n")
}

func firstCause(verr *jsonschema.ValidationError) string {
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return verr.Error()
}

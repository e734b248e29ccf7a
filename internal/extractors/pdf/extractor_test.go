package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

const export = `{
	"name": "gdpr",
	"origin": {"filename": "gdpr.pdf"},
	"body": {"children": [{"$ref": "#/texts/0"}, {"$ref": "#/texts/1"}]},
	"texts": [
		{"self_ref": "#/texts/0", "label": "section_header", "level": 1, "text": "Article 5", "prov": [{"page_no": 35}]},
		{"self_ref": "#/texts/1", "label": "text", "text": "Personal data shall be processed lawfully.", "prov": [{"page_no": 35}]}
	]
}`

// mockRunner is a test double for CommandRunner. It writes the configured
// export into the --output directory like docling does.
type mockRunner struct {
	export string
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	if m.err != nil {
		return m.output, m.err
	}
	if m.export != "" {
		var outDir, input string
		for i, a := range args {
			if a == "--output" && i+1 < len(args) {
				outDir = args[i+1]
			}
		}
		input = args[len(args)-1]
		stem := filepath.Base(input)
		stem = stem[:len(stem)-len(filepath.Ext(stem))]
		if err := os.WriteFile(filepath.Join(outDir, stem+".json"), []byte(m.export), 0644); err != nil {
			return nil, err
		}
	}
	return m.output, nil
}

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, Name, e.Name())
	assert.Equal(t, DefaultBinary, e.binary)
	assert.Equal(t, domain.TableModeFast, e.tableMode)
	assert.False(t, e.ocr)
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{}
	e := NewWithRunner(runner, WithBinary("/opt/docling/bin/docling"))
	assert.Equal(t, runner, e.runner)
	assert.Nil(t, e.lookPath)
	assert.Equal(t, "/opt/docling/bin/docling", e.binary)
}

func TestSupports(t *testing.T) {
	e := New()
	assert.True(t, e.Supports("data/pdf/gdpr.pdf"))
	assert.True(t, e.Supports("GDPR.PDF"))
	assert.False(t, e.Supports("gdpr.json"))
}

func TestArgs(t *testing.T) {
	e := New(WithTableMode(domain.TableModeAccurate), WithOCR(true))
	assert.Equal(t, []string{
		"--to", "json", "--output", "/out", "--table-mode", "accurate", "--ocr", "in.pdf",
	}, e.Args("in.pdf", "/out"))

	e = New(WithTableMode("bogus"))
	assert.Contains(t, e.Args("in.pdf", "/out"), "fast")
	assert.Contains(t, e.Args("in.pdf", "/out"), "--no-ocr")
}

func TestFromSettings(t *testing.T) {
	e := FromSettings(domain.ExtractionSettings{TableMode: domain.TableModeAccurate, OCR: true}, "data/extracted")
	assert.Equal(t, domain.TableModeAccurate, e.tableMode)
	assert.True(t, e.ocr)
	assert.Equal(t, "data/extracted", e.outputDir)
}

func TestExtract_WithMockRunner(t *testing.T) {
	runner := &mockRunner{export: export}
	e := NewWithRunner(runner)

	doc, err := e.Extract(context.Background(), "/data/pdf/gdpr.pdf")
	require.NoError(t, err)

	assert.Equal(t, DefaultBinary, runner.name)
	assert.Equal(t, "gdpr.pdf", doc.Filename)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "Article 5", doc.Items[0].Text)
	assert.Equal(t, 35, doc.Items[1].Prov[0].PageNo)
}

func TestExtract_KeepsExportInOutputDir(t *testing.T) {
	dir := t.TempDir()
	e := NewWithRunner(&mockRunner{export: export}, WithOutputDir(filepath.Join(dir, "extracted")))

	_, err := e.Extract(context.Background(), "gdpr.pdf")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "extracted", "gdpr.json"))
}

func TestExtract_RunnerError(t *testing.T) {
	e := NewWithRunner(&mockRunner{output: []byte("segfault\n"), err: errors.New("exit status 139")})

	doc, err := e.Extract(context.Background(), "gdpr.pdf")
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "docling failed")
	assert.Contains(t, err.Error(), "segfault")
}

func TestExtract_NoExport(t *testing.T) {
	e := NewWithRunner(&mockRunner{})

	_, err := e.Extract(context.Background(), "gdpr.pdf")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_ConverterMissing(t *testing.T) {
	e := New(WithBinary("gdprqa-no-such-docling-binary"))

	_, err := e.Extract(context.Background(), "gdpr.pdf")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, ErrConverterNotFound)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWithRunner(&mockRunner{export: export}).Extract(ctx, "gdpr.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pip install docling")
	assert.Contains(t, instructions, "docling-tools models download")
}

func TestErrConverterNotFound(t *testing.T) {
	assert.Contains(t, ErrConverterNotFound.Error(), "docling")
}

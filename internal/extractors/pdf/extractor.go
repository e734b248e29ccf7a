// Package pdf extracts PDF files by running the docling command-line
// converter and loading its lossless JSON export.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/extractors/docling"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Name identifies this extractor.
const Name = "pdf"

// DefaultBinary is the converter executable looked up in PATH.
const DefaultBinary = "docling"

// ErrConverterNotFound is returned when the docling CLI is not installed.
var ErrConverterNotFound = errors.New("docling converter not found in PATH")

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Extractor converts PDFs with docling.
type Extractor struct {
	runner    CommandRunner
	binary    string
	tableMode domain.TableMode
	ocr       bool
	outputDir string
	lookPath  func(string) (string, error)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBinary overrides the converter executable.
func WithBinary(binary string) Option {
	return func(e *Extractor) { e.binary = binary }
}

// WithTableMode sets the table-structure recognition mode.
func WithTableMode(mode domain.TableMode) Option {
	return func(e *Extractor) {
		if mode.IsValid() {
			e.tableMode = mode
		}
	}
}

// WithOCR enables or disables OCR.
func WithOCR(enabled bool) Option {
	return func(e *Extractor) { e.ocr = enabled }
}

// WithOutputDir keeps the JSON exports in dir instead of a temporary directory.
func WithOutputDir(dir string) Option {
	return func(e *Extractor) { e.outputDir = dir }
}

// New creates a PDF extractor that runs the docling CLI from PATH.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		runner:    execRunner{},
		binary:    DefaultBinary,
		tableMode: domain.TableModeFast,
		lookPath:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewWithRunner creates a PDF extractor with a custom command runner.
// The runner is responsible for resolving the binary, so no PATH check is made.
func NewWithRunner(runner CommandRunner, opts ...Option) *Extractor {
	e := New(opts...)
	e.runner = runner
	e.lookPath = nil
	return e
}

// FromSettings creates a PDF extractor configured from extraction settings.
func FromSettings(s domain.ExtractionSettings, outputDir string) *Extractor {
	return New(WithTableMode(s.TableMode), WithOCR(s.OCR), WithOutputDir(outputDir))
}

// CheckAvailable reports whether the docling CLI can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		return ErrConverterNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing docling.
func InstallInstructions() string {
	return `PDF extraction requires the docling converter:
  pip install docling
  # or
  pipx install docling

Pre-download the layout and table models once with:
  docling-tools models download`
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Supports reports whether path is a PDF.
func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Args returns the converter arguments for path writing into outDir.
func (e *Extractor) Args(path, outDir string) []string {
	ocr := "--no-ocr"
	if e.ocr {
		ocr = "--ocr"
	}
	return []string{
		"--to", "json",
		"--output", outDir,
		"--table-mode", string(e.tableMode),
		ocr,
		path,
	}
}

// Extract converts the PDF at path and loads the resulting export.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.StructuredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.lookPath != nil {
		if _, err := e.lookPath(e.binary); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, ErrConverterNotFound)
		}
	}

	outDir := e.outputDir
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "gdprqa-docling-*")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		outDir = tmp
	} else if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logger.Debug("pdf: converting %s (table mode %s, ocr %t)", path, e.tableMode, e.ocr)
	out, err := e.runner.Run(ctx, e.binary, e.Args(path, outDir)...)
	if err != nil {
		return nil, fmt.Errorf("%w: docling failed: %v: %s",
			domain.ErrExtractionFailed, err, strings.TrimSpace(string(out)))
	}

	base := filepath.Base(path)
	exportPath := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: docling produced no export: %v", domain.ErrExtractionFailed, err)
	}
	return docling.Parse(data, base)
}

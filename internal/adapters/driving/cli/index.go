package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

var (
	indexInput      string
	indexSkipIndex  bool
	indexNoCache    bool
	indexTrustCache bool
	indexWatch      bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Extract, chunk and index the input documents",
	Long: `Runs the full pipeline over the input directory: every PDF is converted
with docling, pre-extracted JSON and markdown files are loaded, documents
are chunked, and the chunks are embedded into a fresh vector table that
replaces the previous one.

Chunks are cached by content hash; an unchanged input set skips chunking.

Examples:
  gdprqa index
  gdprqa index --input ./data/pdf --no-cache
  gdprqa index --watch`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexInput, "input", "i", "", "input directory (default from settings)")
	indexCmd.Flags().BoolVar(&indexSkipIndex, "skip-index", false, "stop after chunking")
	indexCmd.Flags().BoolVar(&indexNoCache, "no-cache", false, "ignore the chunk cache")
	indexCmd.Flags().BoolVar(&indexTrustCache, "trust-cache", false, "reuse an existing chunk cache without checking inputs")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "rebuild whenever the input directory changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline service")
	}
	if indexNoCache && indexTrustCache {
		return fmt.Errorf("%w: --no-cache and --trust-cache are mutually exclusive", domain.ErrInvalidInput)
	}

	opts := driving.PipelineOptions{
		InputDir:   indexInput,
		SkipIndex:  indexSkipIndex,
		NoCache:    indexNoCache,
		TrustCache: indexTrustCache,
	}

	if indexWatch {
		return runIndexWatch(cmd, opts)
	}

	report, err := pipelineService.Run(commandContext(cmd), opts)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, domain.ErrVectorStoreUnavailable) {
			cmd.Println("Run 'gdprqa settings' to configure indexing, or pass --skip-index to stop after chunking.")
		}
		return fmt.Errorf("index failed: %w", err)
	}
	return nil
}

func runIndexWatch(cmd *cobra.Command, opts driving.PipelineOptions) error {
	if watchFunc == nil {
		return errNotConfigured("watch mode")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	err := watchFunc(ctx, opts, func(report *domain.PipelineReport, err error) {
		if err != nil {
			cmd.PrintErrf("Run failed: %v\n", err)
			return
		}
		printReport(cmd, report)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.PipelineReport) {
	cmd.Printf("Documents: %d extracted", report.Documents)
	if len(report.Failed) > 0 {
		cmd.Printf(", %d failed", len(report.Failed))
	}
	cmd.Println()
	for _, f := range report.Failed {
		cmd.Printf("  failed: %s\n", f)
	}

	source := "chunked"
	if report.CacheHit {
		source = "from cache"
	}
	cmd.Printf("Chunks: %d (%s)\n", report.Chunks, source)

	if report.Index == nil {
		cmd.Println("Index: not built")
		return
	}
	cmd.Printf("Index: %s, %d rows, %d dimensions (%s)\n",
		report.Index.Table, report.Index.Rows, report.Index.Dimensions, report.Index.Model)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

var (
	extractInput string
	chunkInput   string
	chunkJSON    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Convert the input documents without chunking",
	Long: `Converts every input file into a structured document and reports the
item count of each. Files that fail to convert are listed and skipped.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Extract and chunk the input documents without indexing",
	Args:  cobra.NoArgs,
	RunE:  runChunk,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "input directory (default from settings)")
	chunkCmd.Flags().StringVarP(&chunkInput, "input", "i", "", "input directory (default from settings)")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "print chunks with metadata as JSON")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(chunkCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline service")
	}

	docs, failed, err := pipelineService.Extract(commandContext(cmd), extractInput)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	for _, d := range docs {
		cmd.Printf("  %s: %d items\n", d.Filename, len(d.Items))
	}
	for _, f := range failed {
		cmd.Printf("  failed: %s\n", f)
	}
	cmd.Printf("Extracted %d documents, %d failed.\n", len(docs), len(failed))
	return nil
}

// chunkOutput is the JSON shape of one chunk.
type chunkOutput struct {
	Text       string               `json:"text"`
	TokenCount int                  `json:"token_count"`
	Headings   []string             `json:"headings,omitempty"`
	Metadata   domain.ChunkMetadata `json:"metadata"`
}

func runChunk(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline service")
	}

	ctx := commandContext(cmd)
	docs, failed, err := pipelineService.Extract(ctx, chunkInput)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	chunks, err := pipelineService.Chunk(ctx, docs)
	if err != nil {
		return fmt.Errorf("chunk failed: %w", err)
	}

	if chunkJSON {
		out := make([]chunkOutput, len(chunks))
		for i, c := range chunks {
			out[i] = chunkOutput{
				Text:       c.Text,
				TokenCount: c.TokenCount,
				Headings:   c.Headings,
				Metadata:   domain.DeriveMetadata(c),
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal chunks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	maxTokens := 0
	for _, c := range chunks {
		maxTokens = max(maxTokens, c.TokenCount)
	}
	cmd.Printf("Documents: %d (%d failed)\n", len(docs), len(failed))
	cmd.Printf("Chunks: %d, largest %d tokens\n", len(chunks), maxTokens)
	return nil
}

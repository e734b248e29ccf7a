package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// previewLength is how much of a passage the search table shows.
const previewLength = 300

var (
	searchLimit  int
	searchJSON   bool
	searchRerank bool
	searchWeight float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed passages",
	Long: `Embeds the query and returns the nearest passages by cosine similarity.
With --rerank, a larger candidate set is re-scored by combining the vector
score with a lexical match score.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "number of results (default from settings)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "rerank candidates with a lexical score")
	searchCmd.Flags().Float64Var(&searchWeight, "weight", domain.DefaultRerankWeight, "vector score weight when reranking")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errNotConfigured("search service")
	}

	k := searchLimit
	if k <= 0 {
		k = defaultSearchK
	}
	opts := domain.SearchOptions{
		K:            k,
		Rerank:       searchRerank,
		RerankWeight: searchWeight,
	}

	results, err := retrievalService.Search(commandContext(cmd), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

// searchResultOutput is the JSON shape of one result.
type searchResultOutput struct {
	Rank     int                  `json:"rank"`
	Score    float64              `json:"score"`
	Text     string               `json:"text"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultOutput, len(results))
	for i, r := range results {
		out[i] = searchResultOutput{Rank: i + 1, Score: r.Score, Text: r.Text, Metadata: r.Metadata}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tSOURCE\tTITLE\tPREVIEW")
	for i, r := range results {
		c := domain.Citation{Text: r.Text, Metadata: r.Metadata}
		preview := domain.Clip(strings.Join(strings.Fields(r.Text), " "), previewLength)
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n", i+1, r.Score, c.Source(), c.Title(), preview)
	}
	w.Flush() //nolint:errcheck // writes go to the command output
}

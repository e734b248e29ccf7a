package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search")

	assert.ErrorContains(t, err, "accepts 1 arg(s)")
}

func TestSearchCmd_Flags(t *testing.T) {
	limit := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "0", limit.DefValue)

	weight := searchCmd.Flags().Lookup("weight")
	require.NotNil(t, weight)
	assert.Equal(t, "0.3", weight.DefValue)

	assert.NotNil(t, searchCmd.Flags().Lookup("rerank"))
	assert.NotNil(t, searchCmd.Flags().Lookup("json"))
}

func TestSearchCmd_DefaultK(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "right to erasure")

	require.NoError(t, err)
	assert.Equal(t, "right to erasure", ts.retrieval.query)
	assert.Equal(t, domain.SearchOptions{K: 5, RerankWeight: domain.DefaultRerankWeight}, ts.retrieval.opts)
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "gdpr.pdf - p. 43")
	assert.Contains(t, out, "Article 17 Right to erasure")
	assert.Contains(t, out, domain.UnknownSource)
}

func TestSearchCmd_LimitAndRerank(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "-n", "12", "--rerank", "--weight", "0", "consent")

	require.NoError(t, err)
	assert.Equal(t, 12, ts.retrieval.opts.K)
	assert.True(t, ts.retrieval.opts.Rerank)
	assert.Zero(t, ts.retrieval.opts.RerankWeight)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "--json", "erasure")
	require.NoError(t, err)

	var got []searchResultOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, []int{43}, got[0].Metadata.PageNumbers)
	assert.Nil(t, got[1].Metadata.Filename)
	assert.Contains(t, out, `"page_numbers"`)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, err := execute(t, "search", "erasure")

	assert.ErrorContains(t, err, "search service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrVectorStoreUnavailable

	_, err := execute(t, "search", "erasure")

	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
	assert.ErrorContains(t, err, "search failed")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	outputSearchTable(cmd, nil)

	assert.Contains(t, buf.String(), "No results found.")
}

func TestOutputSearchTable_ClipsPreview(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	long := bytes.Repeat([]byte("personal data "), 60)
	outputSearchTable(cmd, []domain.SearchResult{{Text: string(long), Score: 0.5}})

	assert.Contains(t, buf.String(), "...")
	assert.Less(t, len(buf.String()), len(long))
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, outputSearchJSON(cmd, nil))
	assert.Equal(t, "[]\n", buf.String())
}

package redis

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func TestCreateIndexArgs(t *testing.T) {
	args := CreateIndexArgs("gdprqa:docling:abc", "gdprqa:docling:abc:", 3072)
	assert.Equal(t, "FT.CREATE", args[0])
	assert.Contains(t, args, "gdprqa:docling:abc:")
	assert.Contains(t, args, "3072")
	assert.Contains(t, args, "COSINE")
}

func TestSearchArgs(t *testing.T) {
	args := SearchArgs("gdprqa:docling", []byte{1, 2}, 6)
	assert.Equal(t, "*=>[KNN 6 @vector $vec AS dist]", args[2])
	assert.Equal(t, []byte{1, 2}, args[6])
	assert.Equal(t, "2", args[len(args)-1])
}

func TestFetchSize(t *testing.T) {
	assert.Equal(t, 6, fetchSize(3, 10))
	assert.Equal(t, 10, fetchSize(7, 10))
	assert.Equal(t, 4, fetchSize(50, 4))
	assert.Equal(t, 4, fetchSize(math.MaxInt, 4))
}

func TestParseSearchReply(t *testing.T) {
	reply := []any{
		int64(2),
		"gdprqa:docling:abc:4",
		[]any{"text", "Article 17", "seq", "4", "metadata", `{"filename":"gdpr.pdf","page_numbers":[43],"title":null}`, "dist", "0.25"},
		"gdprqa:docling:abc:0",
		[]any{"text", "Recital 1", "seq", "0", "metadata", `{"filename":null,"page_numbers":[],"title":null}`, "dist", "0.5"},
	}
	rows, err := ParseSearchReply(reply)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 4, rows[0].Position)
	assert.Equal(t, "Article 17", rows[0].Record.Text)
	assert.InDelta(t, 0.75, rows[0].Score, 1e-9)
	assert.Equal(t, "gdpr.pdf", rows[0].Record.Metadata.FilenameOr(""))
	assert.Equal(t, []int{43}, rows[0].Record.Metadata.PageNumbers)
	assert.Nil(t, rows[1].Record.Metadata.Filename)
}

func TestParseSearchReply_Errors(t *testing.T) {
	_, err := ParseSearchReply("nope")
	assert.Error(t, err)

	_, err = ParseSearchReply([]any{int64(1), "k", []any{"dist", "x"}})
	assert.Error(t, err)

	rows, err := ParseSearchReply([]any{int64(0)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseNumDocs(t *testing.T) {
	n, err := ParseNumDocs([]any{"index_name", "x", "num_docs", "42"})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = ParseNumDocs([]any{"num_docs", int64(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = ParseNumDocs([]any{"index_name", "x"})
	assert.Error(t, err)
}

// Integration test - only runs against a Redis Stack named by GDPRQA_REDIS_ADDR.
func TestStore_Integration(t *testing.T) {
	addr := os.Getenv("GDPRQA_REDIS_ADDR")
	if addr == "" {
		t.Skip("GDPRQA_REDIS_ADDR not set, skipping Redis integration test")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, Options{Addr: addr, Namespace: fmt.Sprintf("gdprqa-test-%d", os.Getpid())})
	require.NoError(t, err)
	defer s.Close()

	name := "gdpr.pdf"
	build := func(texts ...string) {
		b, err := s.CreateTable(ctx, "docling", 2)
		require.NoError(t, err)
		records := make([]domain.IndexRecord, len(texts))
		for i, text := range texts {
			records[i] = domain.IndexRecord{
				Text:     text,
				Vector:   []float32{float32(i + 1), 1},
				Metadata: domain.ChunkMetadata{Filename: &name, PageNumbers: []int{i + 1}},
			}
		}
		require.NoError(t, b.Add(ctx, records))
		require.NoError(t, b.Commit(ctx))
	}

	build("old")
	build("first", "second")

	rows, err := s.Search(ctx, "docling", []float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "first", rows[0].Record.Text)
	assert.InDelta(t, 1.0, rows[0].Score, 1e-5)
}

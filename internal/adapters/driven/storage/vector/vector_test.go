package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestRank(t *testing.T) {
	rows := []driven.VectorRow{
		{Position: 0, Score: 0.5},
		{Position: 1, Score: 0.9},
		{Position: 2, Score: 0.5},
		{Position: 3, Score: 0.7},
	}
	ranked := Rank(rows, 3)
	positions := make([]int, len(ranked))
	for i, r := range ranked {
		positions[i] = r.Position
	}
	assert.Equal(t, []int{1, 3, 0}, positions)

	assert.Len(t, Rank([]driven.VectorRow{{}, {}}, 0), 2)
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	data := Encode(v)
	assert.Len(t, data, 16)
	assert.Equal(t, v, Decode(data))
	assert.Equal(t, v[:1], Decode(append(Encode(v[:1]), 0xff)))
	assert.Empty(t, Decode(nil))
}

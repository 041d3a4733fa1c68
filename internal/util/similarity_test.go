package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityRatio("", ""))
	assert.Equal(t, 1.0, SimilarityRatio("same text", "same text"))
	assert.Equal(t, 0.0, SimilarityRatio("abc", ""))

	// One-word change in a long sentence stays well above the dedup threshold.
	a := "What is the primary function of the mitochondria in a cell?"
	b := "What is the primary function of the mitochondria in cells?"
	assert.Greater(t, SimilarityRatio(a, b), 0.85)

	// Unrelated questions land well below it.
	c := "Which treaty ended the Thirty Years' War?"
	assert.Less(t, SimilarityRatio(a, c), 0.85)
}

func TestSimilarityRatio_Symmetric(t *testing.T) {
	a := "alpha beta gamma"
	b := "alpha beta delta"
	assert.InDelta(t, SimilarityRatio(a, b), SimilarityRatio(b, a), 0.0001)
}

func TestCosineSimilarity(t *testing.T) {
	v1 := []float32{1, 0, 0}
	v2 := []float32{1, 0, 0}
	v3 := []float32{0, 1, 0}

	sim, err := CosineSimilarity(v1, v2)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 0.0001)

	sim, err = CosineSimilarity(v1, v3)
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 0.0001)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity_EmptyInput(t *testing.T) {
	_, err := CosineSimilarity(nil, []float32{1})
	assert.Error(t, err)
}

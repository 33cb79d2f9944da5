package retrieval

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoresOf(pairs ...any) *Scores {
	s := NewScores()
	for i := 0; i < len(pairs); i += 2 {
		s.Set(pairs[i].(string), pairs[i+1].(float64))
	}
	return s
}

func TestCosine_SymmetricAndSelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.2, 0.9},
		{5, 5, 5},
		{-1, 2, -3},
	}

	for _, a := range vectors {
		assert.InDelta(t, 1.0, Cosine(a, a), 1e-6)
		for _, b := range vectors {
			assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-9)
		}
	}
}

func TestCosine_ZeroVectorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine([]float32{1, 1}, []float32{0, 0}))
	assert.False(t, math.IsNaN(Cosine([]float32{0}, []float32{0})))
}

func TestCosine_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-9)
}

func TestNormalizeGraph_DividesByMax(t *testing.T) {
	normalized := NormalizeGraph(scoresOf("A", 4.0, "B", 2.0, "C", 0.0))

	assert.Equal(t, []string{"A", "B", "C"}, normalized.Keys())
	assert.InDelta(t, 1.0, normalized.Get("A"), 1e-9)
	assert.InDelta(t, 0.5, normalized.Get("B"), 1e-9)
	assert.InDelta(t, 0.0, normalized.Get("C"), 1e-9)
}

func TestNormalizeGraph_NoMatches(t *testing.T) {
	empty := NormalizeGraph(NewScores())
	assert.Equal(t, 0, empty.Len())

	zeros := NormalizeGraph(scoresOf("A", 0.0, "B", 0.0))
	for _, id := range zeros.Keys() {
		assert.Equal(t, 0.0, zeros.Get(id))
		assert.False(t, math.IsNaN(zeros.Get(id)))
	}

	fused := Fuse(scoresOf("A", 0.8), empty, DefaultWeights())
	assert.InDelta(t, 0.4, fused.Get("A"), 1e-9)
}

func TestFuse_WeightedSumAndRanking(t *testing.T) {
	vector := scoresOf("A", 0.9, "B", 0.4)
	graph := scoresOf("A", 0.2, "B", 1.0)

	fused := Fuse(vector, graph, DefaultWeights())
	assert.InDelta(t, 0.55, fused.Get("A"), 1e-9)
	assert.InDelta(t, 0.70, fused.Get("B"), 1e-9)

	ranked := Rank(fused)
	require.Len(t, ranked, 2)
	assert.Equal(t, "B", ranked[0].CaseID)
	assert.Equal(t, "A", ranked[1].CaseID)
}

func TestFuse_GraphOnlyCasesAreDropped(t *testing.T) {
	fused := Fuse(scoresOf("A", 0.5), scoresOf("A", 1.0, "Z", 1.0), DefaultWeights())

	assert.True(t, fused.Has("A"))
	assert.False(t, fused.Has("Z"))
}

func TestFuse_MonotoneInEachTerm(t *testing.T) {
	weights := []Weights{{0.5, 0.5}, {0.8, 0.2}, {0, 1}, {1, 0}, {2, 3}}
	steps := []float64{0, 0.1, 0.25, 0.5, 0.75, 1}

	for _, w := range weights {
		for _, fixed := range steps {
			prevV, prevG := math.Inf(-1), math.Inf(-1)
			for _, x := range steps {
				byVector := Fuse(scoresOf("A", x), scoresOf("A", fixed), w).Get("A")
				byGraph := Fuse(scoresOf("A", fixed), scoresOf("A", x), w).Get("A")

				assert.GreaterOrEqual(t, byVector, prevV)
				assert.GreaterOrEqual(t, byGraph, prevG)
				prevV, prevG = byVector, byGraph
			}
		}
	}
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	ranked := Rank(scoresOf("C", 0.5, "A", 0.5, "B", 0.9, "D", 0.5))

	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.CaseID)
	}
	assert.Equal(t, []string{"B", "C", "A", "D"}, ids)
}

func TestTopK_ExcludesQueryAndReturnsK(t *testing.T) {
	s := NewScores()
	for i := 0; i < 10; i++ {
		s.Set(fmt.Sprintf("case-%d", i), float64(i)/10)
	}

	result := TopK(Exclude(Rank(s), "case-9"), 5)

	require.Len(t, result, 5)
	for i, r := range result {
		assert.NotEqual(t, "case-9", r.CaseID)
		if i > 0 {
			assert.GreaterOrEqual(t, result[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, "case-8", result[0].CaseID)
	assert.Equal(t, "case-4", result[4].CaseID)
}

func TestTopK_NonPositiveReturnsAll(t *testing.T) {
	ranked := Rank(scoresOf("A", 1.0, "B", 0.5))
	assert.Len(t, TopK(ranked, 0), 2)
	assert.Len(t, TopK(ranked, 10), 2)
}

func TestScores_MaxKeepsBest(t *testing.T) {
	s := NewScores()
	s.Max("A", -0.2)
	s.Max("A", 0.6)
	s.Max("A", 0.3)

	assert.InDelta(t, 0.6, s.Get("A"), 1e-9)
	assert.Equal(t, 1, s.Len())
}

func TestCountMatches(t *testing.T) {
	counts := CountMatches([]string{"B", "A", "B", "B", "C"})

	assert.Equal(t, []string{"B", "A", "C"}, counts.Keys())
	assert.Equal(t, 3.0, counts.Get("B"))
	assert.Equal(t, 1.0, counts.Get("A"))
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.NoError(t, Weights{Vector: 0, Graph: 1}.Validate())
	assert.ErrorIs(t, Weights{Vector: -0.1, Graph: 1}.Validate(), ErrInvalidWeights)
	assert.ErrorIs(t, Weights{Vector: 1, Graph: math.NaN()}.Validate(), ErrInvalidWeights)
}

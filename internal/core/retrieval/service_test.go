package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

type stubCases struct {
	cases map[string]*legalcase.StructuredCase
}

func (s *stubCases) FindStructured(ctx context.Context, caseID string) (mo.Option[*legalcase.StructuredCase], error) {
	if sc, ok := s.cases[caseID]; ok {
		return mo.Some(sc), nil
	}
	return mo.None[*legalcase.StructuredCase](), nil
}

type stubEmbedder struct {
	vector []float32
	texts  []string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.texts = append(e.texts, text)
	return e.vector, nil
}

type stubVectors struct {
	entries []legalcase.EmbeddingEntry
}

func (v *stubVectors) Load(ctx context.Context) ([]legalcase.EmbeddingEntry, error) {
	return v.entries, nil
}

type stubGraph struct {
	ids    []string
	err    error
	facts  []string
	issues []string
}

func (g *stubGraph) MatchFragments(ctx context.Context, facts, issues []string) ([]string, error) {
	g.facts, g.issues = facts, issues
	return g.ids, g.err
}

func newTestService(cases *stubCases, emb *stubEmbedder, vec *stubVectors, graph *stubGraph, opts ...ServiceOption) *Service {
	opts = append(opts, WithRetrievalLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewService(cases, emb, vec, graph, opts...)
}

func queryCases() *stubCases {
	return &stubCases{cases: map[string]*legalcase.StructuredCase{
		"Q": {
			CaseID: "Q",
			Facts:  []string{"land acquired by state", " "},
			Issues: []string{"compensation"},
		},
	}}
}

func TestService_HybridFusesAndExcludesQuery(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	vec := &stubVectors{entries: []legalcase.EmbeddingEntry{
		{CaseID: "Q", Vector: []float32{1, 0}},
		{CaseID: "A", Vector: []float32{0.9, 0.435889894}},
		{CaseID: "B", Vector: []float32{0.4, 0.916515139}},
	}}
	graph := &stubGraph{ids: []string{"Q", "Q", "A", "B", "B", "B", "B", "B"}}

	svc := newTestService(queryCases(), emb, vec, graph)
	results, err := svc.Hybrid(context.Background(), "Q.json")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].CaseID)
	assert.InDelta(t, 0.70, results[0].Score, 1e-6)
	assert.InDelta(t, 1.0, results[0].GraphScore, 1e-9)
	assert.Equal(t, 5, results[0].GraphMatches)
	assert.Equal(t, "A", results[1].CaseID)
	assert.InDelta(t, 0.55, results[1].Score, 1e-6)
	assert.InDelta(t, 0.9, results[1].VectorScore, 1e-6)

	assert.Equal(t, []string{"land acquired by state"}, graph.facts)
	assert.Equal(t, []string{"compensation"}, graph.issues)
	assert.Equal(t, []string{"land acquired by state   compensation"}, emb.texts)
}

func TestService_HybridDropsGraphOnlyCases(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	vec := &stubVectors{entries: []legalcase.EmbeddingEntry{{CaseID: "A", Vector: []float32{1, 0}}}}
	graph := &stubGraph{ids: []string{"Z", "Z"}}

	results, err := newTestService(queryCases(), emb, vec, graph).Hybrid(context.Background(), "Q")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].CaseID)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
}

func TestService_HybridReturnsExactlyK(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 1}}
	entries := []legalcase.EmbeddingEntry{{CaseID: "Q", Vector: []float32{1, 1}}}
	for _, id := range []string{"A", "B", "C", "D", "E", "F"} {
		entries = append(entries, legalcase.EmbeddingEntry{CaseID: id, Vector: []float32{1, 0.5}})
	}

	svc := newTestService(queryCases(), emb, &stubVectors{entries: entries}, &stubGraph{}, WithTopK(5))
	results, err := svc.Hybrid(context.Background(), "Q")
	require.NoError(t, err)

	require.Len(t, results, 5)
	for _, r := range results {
		assert.NotEqual(t, "Q", r.CaseID)
	}
}

func TestService_ChunksCollapseToBestSimilarity(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	vec := &stubVectors{entries: []legalcase.EmbeddingEntry{
		{CaseID: "A", Chunk: 0, Vector: []float32{0, 1}},
		{CaseID: "A", Chunk: 1, Vector: []float32{1, 0}},
		{CaseID: "B", Vector: []float32{1, 1}},
	}}

	results, err := newTestService(queryCases(), emb, vec, nil).VectorOnly(context.Background(), "Q")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].CaseID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("query case not found", func(t *testing.T) {
		svc := newTestService(queryCases(), &stubEmbedder{}, &stubVectors{}, &stubGraph{})
		_, err := svc.Hybrid(ctx, "missing")
		assert.ErrorIs(t, err, ErrCaseNotFound)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		vec := &stubVectors{entries: []legalcase.EmbeddingEntry{{CaseID: "A", Vector: []float32{1, 0, 0}}}}
		svc := newTestService(queryCases(), &stubEmbedder{vector: []float32{1, 0}}, vec, &stubGraph{})
		_, err := svc.VectorOnly(ctx, "Q")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty store", func(t *testing.T) {
		svc := newTestService(queryCases(), &stubEmbedder{vector: []float32{1}}, &stubVectors{}, &stubGraph{})
		_, err := svc.Query(ctx, "land acquisition compensation dispute")
		assert.ErrorIs(t, err, ErrEmptyStore)
	})

	t.Run("negative weights", func(t *testing.T) {
		svc := newTestService(queryCases(), &stubEmbedder{}, &stubVectors{}, &stubGraph{},
			WithWeights(Weights{Vector: -1, Graph: 1}))
		_, err := svc.Hybrid(ctx, "Q")
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("graph failure propagates", func(t *testing.T) {
		boom := errors.New("connection refused")
		svc := newTestService(queryCases(), nil, nil, &stubGraph{err: boom})
		_, err := svc.GraphOnly(ctx, "Q")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("blank query", func(t *testing.T) {
		svc := newTestService(queryCases(), &stubEmbedder{}, &stubVectors{}, nil)
		_, err := svc.Query(ctx, "  ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("blank case id", func(t *testing.T) {
		svc := newTestService(queryCases(), &stubEmbedder{}, &stubVectors{}, &stubGraph{})
		_, err := svc.Hybrid(ctx, " ")
		assert.ErrorIs(t, err, ErrEmptyCaseID)
	})
}

func TestService_GraphOnlyUsesRawCounts(t *testing.T) {
	graph := &stubGraph{ids: []string{"A", "B", "B", "Q", "Q", "Q"}}

	results, err := newTestService(queryCases(), nil, nil, graph).GraphOnly(context.Background(), "Q")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].CaseID)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, 2, results[0].GraphMatches)
	assert.Equal(t, "A", results[1].CaseID)
}

func TestService_QueryKeepsEveryCase(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{1, 0}}
	vec := &stubVectors{entries: []legalcase.EmbeddingEntry{
		{CaseID: "Q", Vector: []float32{1, 0}},
		{CaseID: "A", Vector: []float32{0, 1}},
	}}

	results, err := newTestService(queryCases(), emb, vec, nil).Query(context.Background(), "land acquisition compensation dispute")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Q", results[0].CaseID)
	assert.Equal(t, []string{"land acquisition compensation dispute"}, emb.texts)
}

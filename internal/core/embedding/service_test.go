package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

type stubSource struct{ records []legalcase.RawStructured }

func (s *stubSource) ListRaw(ctx context.Context) ([]legalcase.RawStructured, error) {
	return s.records, nil
}

// lengthEmbedder はテキストの語数を1次元目に持つベクトルを返す
type lengthEmbedder struct {
	batchSize int
	batches   [][]string
	err       error
}

func (e *lengthEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(strings.Fields(text))), 1}
	}
	return vectors, nil
}

func (e *lengthEmbedder) MaxBatchSize() int { return e.batchSize }
func (e *lengthEmbedder) ModelName() string { return "test-model" }

type memoryVectorStore struct {
	entries  []legalcase.EmbeddingEntry
	replaced int
}

func (m *memoryVectorStore) Replace(ctx context.Context, entries []legalcase.EmbeddingEntry) error {
	m.replaced++
	m.entries = entries
	return nil
}

type wordLimiter struct{}

func (wordLimiter) TruncateTokens(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}

func record(id, raw string) legalcase.RawStructured {
	return legalcase.RawStructured{CaseID: id, Raw: []byte(raw)}
}

func newTestService(source *stubSource, emb *lengthEmbedder, store *memoryVectorStore, opts ...EmbedServiceOption) *EmbedService {
	opts = append(opts, WithEmbedLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewEmbedService(source, emb, store, opts...)
}

func TestEmbedService_OneEntryPerCase(t *testing.T) {
	source := &stubSource{records: []legalcase.RawStructured{
		record("A", `{"key_facts":["land taken"],"legal_issues":["compensation"]}`),
		record("B", `{"key_facts":"a, b","legal_issues":["c"]}`),
		record("broken", `not json`),
	}}
	emb := &lengthEmbedder{batchSize: 100}
	store := &memoryVectorStore{}

	result, err := newTestService(source, emb, store).Embed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Cases)
	assert.Equal(t, 2, result.Entries)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "test-model", result.Model)

	require.Len(t, emb.batches, 1)
	assert.Equal(t, []string{"land taken compensation", "a b c"}, emb.batches[0])

	require.Len(t, store.entries, 2)
	assert.Equal(t, legalcase.EmbeddingEntry{CaseID: "A", Vector: []float32{3, 1}}, store.entries[0])
	assert.Equal(t, "B", store.entries[1].CaseID)
}

func TestEmbedService_ChunksAndBatches(t *testing.T) {
	source := &stubSource{records: []legalcase.RawStructured{
		record("A", `{"key_facts":["one two three four five"],"legal_issues":["six seven"]}`),
		record("B", `{"key_facts":["x"],"legal_issues":[]}`),
	}}
	emb := &lengthEmbedder{batchSize: 2}
	store := &memoryVectorStore{}

	result, err := newTestService(source, emb, store, WithChunkSize(3)).Embed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Cases)
	assert.Equal(t, 4, result.Entries)
	assert.Len(t, emb.batches, 2)

	chunks := make([]int, 0, len(store.entries))
	for _, e := range store.entries {
		chunks = append(chunks, e.Chunk)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, chunks)
	assert.Equal(t, "B", store.entries[3].CaseID)
}

func TestEmbedService_SkipsBlankText(t *testing.T) {
	source := &stubSource{records: []legalcase.RawStructured{
		record("empty", `{"key_facts":[],"legal_issues":[]}`),
		record("A", `{"key_facts":["f"],"legal_issues":["i"]}`),
	}}
	store := &memoryVectorStore{}

	result, err := newTestService(source, &lengthEmbedder{batchSize: 10}, store).Embed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cases)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.entries, 1)
}

func TestEmbedService_TruncatesToTokenLimit(t *testing.T) {
	source := &stubSource{records: []legalcase.RawStructured{
		record("A", `{"key_facts":["a b c d e"],"legal_issues":["f"]}`),
	}}
	emb := &lengthEmbedder{batchSize: 10}

	_, err := newTestService(source, emb, &memoryVectorStore{}, WithTokenLimiter(wordLimiter{}, 2)).Embed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a b"}, emb.batches[0])
}

func TestEmbedService_ErrorLeavesStoreUntouched(t *testing.T) {
	source := &stubSource{records: []legalcase.RawStructured{
		record("A", `{"key_facts":["f"],"legal_issues":["i"]}`),
	}}
	boom := errors.New("rate limited")
	store := &memoryVectorStore{}

	_, err := newTestService(source, &lengthEmbedder{batchSize: 10, err: boom}, store).Embed(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.replaced)
}

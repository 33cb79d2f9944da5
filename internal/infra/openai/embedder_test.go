package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder, err := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
	assert.Equal(t, MaxBatch, embedder.MaxBatchSize())
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func embeddingServer(t *testing.T, handler func(w http.ResponseWriter, input any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model string `json:"model"`
			Input any    `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-embed", body.Model)

		w.Header().Set("Content-Type", "application/json")
		handler(w, body.Input)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEmbedder_BatchEmbedKeepsInputOrder(t *testing.T) {
	server := embeddingServer(t, func(w http.ResponseWriter, input any) {
		texts, ok := input.([]any)
		require.True(t, ok)
		assert.Len(t, texts, 2)

		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "test-embed",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	})

	embedder, err := NewEmbedder("test-key", WithEmbeddingBaseURL(server.URL), WithEmbeddingModel("test-embed"))
	require.NoError(t, err)

	vectors, err := embedder.BatchEmbed(t.Context(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestEmbedder_EmbedSendsSingleString(t *testing.T) {
	server := embeddingServer(t, func(w http.ResponseWriter, input any) {
		assert.Equal(t, "land acquisition compensation dispute", input)
		_, _ = w.Write([]byte(`{"object":"list","model":"test-embed","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	})

	embedder, err := NewEmbedder("test-key", WithEmbeddingBaseURL(server.URL), WithEmbeddingModel("test-embed"))
	require.NoError(t, err)

	vector, err := embedder.Embed(t.Context(), "land acquisition compensation dispute")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vector)
}

func TestEmbedder_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, func(w http.ResponseWriter, input any) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","model":"test-embed","data":[{"object":"embedding","index":0,"embedding":[1]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	})

	embedder, err := NewEmbedder("test-key",
		WithEmbeddingBaseURL(server.URL),
		WithEmbeddingModel("test-embed"),
		WithRateLimitBackoff(time.Millisecond),
	)
	require.NoError(t, err)

	vector, err := embedder.Embed(t.Context(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vector)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedder_DoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, func(w http.ResponseWriter, input any) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	})

	embedder, err := NewEmbedder("test-key", WithEmbeddingBaseURL(server.URL), WithEmbeddingModel("test-embed"))
	require.NoError(t, err)

	_, err = embedder.Embed(t.Context(), "text")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedder_RejectsOversizedBatch(t *testing.T) {
	embedder, err := NewEmbedder("test-key")
	require.NoError(t, err)

	_, err = embedder.BatchEmbed(t.Context(), make([]string, MaxBatch+1))
	assert.Error(t, err)

	_, err = embedder.BatchEmbed(t.Context(), nil)
	assert.Error(t, err)
}

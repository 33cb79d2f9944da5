package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATA_DIR", "RAW_CASES_DIR", "RAW_TEXT_DIR", "STRUCTURED_DIR", "EMBEDDING_FILE", "GRAPH_DIR",
	"LLM_API_KEY", "HF_TOKEN", "LLM_BASE_URL", "LLM_MODEL", "LLM_TIMEOUT", "LLM_MAX_ATTEMPTS",
	"EMBEDDING_API_KEY", "EMBEDDING_MODEL", "EMBEDDING_CHUNK_SIZE",
	"RETRIEVAL_TOP_K", "RETRIEVAL_VECTOR_WEIGHT", "RETRIEVAL_GRAPH_WEIGHT",
	"VECTOR_STORE", "NEO4J_URI",
}

// clearEnv はテスト中の環境変数を空にする（t.Setenv で終了時に復元される）
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join("data", "raw_cases"), cfg.Paths.RawCasesDir)
	assert.Equal(t, filepath.Join("data", "processed_cases", "raw_text"), cfg.Paths.RawTextDir)
	assert.Equal(t, filepath.Join("data", "processed_cases", "structured"), cfg.Paths.StructuredDir)
	assert.Equal(t, filepath.Join("data", "embeddings.json"), cfg.Paths.EmbeddingFile)
	assert.Equal(t, filepath.Join("data", "graph"), cfg.Paths.GraphDir)

	assert.Equal(t, "https://router.huggingface.co/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 800, cfg.LLM.MaxTokens)
	assert.Equal(t, 12000, cfg.LLM.TextLimit)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)

	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.VectorWeight, 1e-9)
	assert.InDelta(t, 0.5, cfg.Retrieval.GraphWeight, 1e-9)
	assert.Equal(t, VectorStoreFile, cfg.VectorStore)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv.Load は既存の環境変数を上書きしないため、対象キーを未設定にしておく
	for _, key := range []string{"DATA_DIR", "HF_TOKEN", "RETRIEVAL_TOP_K", "LLM_TIMEOUT"} {
		require.NoError(t, os.Unsetenv(key))
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "DATA_DIR=/srv/cases\nHF_TOKEN=hf_test\nRETRIEVAL_TOP_K=7\nLLM_TIMEOUT=5s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"DATA_DIR", "HF_TOKEN", "RETRIEVAL_TOP_K", "LLM_TIMEOUT"} {
			_ = os.Unsetenv(key)
		}
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/srv/cases", cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join("/srv/cases", "raw_cases"), cfg.Paths.RawCasesDir)
	assert.Equal(t, "hf_test", cfg.LLM.APIKey)
	assert.Equal(t, "hf_test", cfg.Embedding.APIKey)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "primary")
	t.Setenv("HF_TOKEN", "fallback")
	t.Setenv("EMBEDDING_API_KEY", "embed")
	t.Setenv("VECTOR_STORE", "Postgres")
	t.Setenv("RETRIEVAL_VECTOR_WEIGHT", "0.3")
	t.Setenv("EMBEDDING_CHUNK_SIZE", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.LLM.APIKey)
	assert.Equal(t, "embed", cfg.Embedding.APIKey)
	assert.Equal(t, VectorStorePostgres, cfg.VectorStore)
	assert.InDelta(t, 0.3, cfg.Retrieval.VectorWeight, 1e-9)
	assert.Equal(t, 0, cfg.Embedding.ChunkSize)
}

func TestLoad_InvalidVectorStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("VECTOR_STORE", "faiss")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VECTOR_STORE")
}

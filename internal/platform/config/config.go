package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// ファイル配置
	Paths PathsConfig

	// 構造化用LLM設定
	LLM LLMConfig

	// Embedding設定
	Embedding EmbeddingConfig

	// Neo4j設定
	Neo4j Neo4jConfig

	// Database設定（VECTOR_STORE=postgres のとき使用）
	Database DatabaseConfig

	// 検索設定
	Retrieval RetrievalConfig

	// ベクトルストア種別
	VectorStore VectorStoreKind

	// ログ設定
	Log LogConfig
}

// VectorStoreKind はEmbeddingの保存先
type VectorStoreKind string

const (
	VectorStoreFile     VectorStoreKind = "file"
	VectorStorePostgres VectorStoreKind = "postgres"
)

// PathsConfig は各ステージの入出力パス
type PathsConfig struct {
	DataDir       string
	RawCasesDir   string
	RawTextDir    string
	StructuredDir string
	EmbeddingFile string
	GraphDir      string
}

// LLMConfig はOpenAI互換のチャットAPI設定
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	TextLimit   int
	Timeout     time.Duration
	MaxAttempts int
	RetryPause  time.Duration

	// RequestsPerMinute は1分あたりのリクエスト上限（0 で制限なし）
	RequestsPerMinute int
}

// EmbeddingConfig はEmbedding API設定
type EmbeddingConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int // 0 の場合はモデルの既定次元
	ChunkSize int // 0 の場合はチャンク分割しない
	MaxTokens int

	// RequestsPerMinute は1分あたりのリクエスト上限（0 で制限なし）
	RequestsPerMinute int
}

// Neo4jConfig はNeo4j接続設定
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RetrievalConfig は検索の重みと件数
type RetrievalConfig struct {
	TopK         int
	VectorWeight float64
	GraphWeight  float64
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	dataDir := getEnv("DATA_DIR", "data")
	processedDir := filepath.Join(dataDir, "processed_cases")

	// LLM_API_KEY が未設定なら HF_TOKEN を使う
	llmKey := getEnv("LLM_API_KEY", os.Getenv("HF_TOKEN"))
	llmBaseURL := getEnv("LLM_BASE_URL", "https://router.huggingface.co/v1")

	cfg := &Config{
		Paths: PathsConfig{
			DataDir:       dataDir,
			RawCasesDir:   getEnv("RAW_CASES_DIR", filepath.Join(dataDir, "raw_cases")),
			RawTextDir:    getEnv("RAW_TEXT_DIR", filepath.Join(processedDir, "raw_text")),
			StructuredDir: getEnv("STRUCTURED_DIR", filepath.Join(processedDir, "structured")),
			EmbeddingFile: getEnv("EMBEDDING_FILE", filepath.Join(dataDir, "embeddings.json")),
			GraphDir:      getEnv("GRAPH_DIR", filepath.Join(dataDir, "graph")),
		},
		LLM: LLMConfig{
			APIKey:      llmKey,
			BaseURL:     llmBaseURL,
			Model:       getEnv("LLM_MODEL", "Qwen/Qwen2.5-7B-Instruct"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 800),
			TextLimit:   getEnvAsInt("LLM_TEXT_LIMIT", 12000),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
			RetryPause:  getEnvAsDuration("LLM_RETRY_PAUSE", 2*time.Second),

			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 0),
		},
		Embedding: EmbeddingConfig{
			APIKey:    getEnv("EMBEDDING_API_KEY", llmKey),
			BaseURL:   getEnv("EMBEDDING_BASE_URL", llmBaseURL),
			Model:     getEnv("EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 0),
			ChunkSize: getEnvAsInt("EMBEDDING_CHUNK_SIZE", 0),
			MaxTokens: getEnvAsInt("EMBEDDING_MAX_TOKENS", 8191),

			RequestsPerMinute: getEnvAsInt("EMBEDDING_REQUESTS_PER_MINUTE", 0),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "neo4j://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "caserag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "caserag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Retrieval: RetrievalConfig{
			TopK:         getEnvAsInt("RETRIEVAL_TOP_K", 5),
			VectorWeight: getEnvAsFloat("RETRIEVAL_VECTOR_WEIGHT", 0.5),
			GraphWeight:  getEnvAsFloat("RETRIEVAL_GRAPH_WEIGHT", 0.5),
		},
		VectorStore: VectorStoreKind(strings.ToLower(getEnv("VECTOR_STORE", string(VectorStoreFile)))),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は値の組み合わせを検証します
// APIキーなどの秘密情報はここでは検証しない（必要なコマンドでクライアント生成時に検証する）
func (c *Config) Validate() error {
	switch c.VectorStore {
	case VectorStoreFile, VectorStorePostgres:
	default:
		return fmt.Errorf("unknown VECTOR_STORE: %q", c.VectorStore)
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must not be negative: %d", c.Retrieval.TopK)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

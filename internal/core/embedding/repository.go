package embedding

import (
	"context"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// Embedder はテキストをベクトルに変換するインターフェース
type Embedder interface {
	// BatchEmbed は入力と同じ順序でベクトルを返す
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// MaxBatchSize は1回の呼び出しで送れる最大件数
	MaxBatchSize() int

	// ModelName はモデル名を返す
	ModelName() string
}

// TokenLimiter はモデルの入力上限に収まるようテキストを切り詰める
type TokenLimiter interface {
	TruncateTokens(text string, maxTokens int) string
}

// StructuredSource は保存済みの構造化出力を読み出すインターフェース
type StructuredSource interface {
	ListRaw(ctx context.Context) ([]legalcase.RawStructured, error)
}

// VectorStore はEmbeddingの保存先
type VectorStore interface {
	// Replace は既存の内容をすべて entries で置き換える
	Replace(ctx context.Context, entries []legalcase.EmbeddingEntry) error
}

package casegraph

import (
	"context"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// GraphRepository はケースグラフの書き込みインターフェース
// テスト時のモック用に消費者側で定義
type GraphRepository interface {
	// EnsureSchema は一意制約を作成する（既存なら何もしない）
	EnsureSchema(ctx context.Context) error

	// UpsertCase はケースとその事実・争点を1トランザクションでMERGEする
	UpsertCase(ctx context.Context, sc *legalcase.StructuredCase) error
}

// StructuredSource は保存済みの構造化出力を読み出すインターフェース
type StructuredSource interface {
	ListRaw(ctx context.Context) ([]legalcase.RawStructured, error)
}

// DatasetWriter はグラフデータセットの出力先
type DatasetWriter interface {
	WriteDataset(ctx context.Context, ds *Dataset) error
}

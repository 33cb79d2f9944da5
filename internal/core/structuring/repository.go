package structuring

import (
	"context"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// TextSource は抽出済みテキストの読み出しインターフェース
type TextSource interface {
	// ListTexts はケースID順に全テキストを返す
	ListTexts(ctx context.Context) ([]*legalcase.CaseText, error)
}

// StructuredStore は構造化出力の保存先
// 出力はLLMの生の応答をそのまま保存する
type StructuredStore interface {
	Exists(ctx context.Context, caseID string) (bool, error)
	SaveRaw(ctx context.Context, caseID string, raw []byte) error
}

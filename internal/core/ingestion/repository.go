package ingestion

import (
	"context"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// DocumentSource は取り込み対象のPDFファイル一覧を提供するインターフェース
// テスト時のモック用に消費者側で定義
type DocumentSource interface {
	// ListDocuments はファイルパスをファイル名順で返す
	ListDocuments(ctx context.Context) ([]string, error)
}

// TextExtractor はPDFからページ単位でテキストを抽出するインターフェース
type TextExtractor interface {
	// ExtractPages は読み取れたページのテキストを返す
	// ファイル自体を開けない場合のみエラーを返す
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// CaseTextStore は抽出テキストの保存先
type CaseTextStore interface {
	SaveText(ctx context.Context, text *legalcase.CaseText) error
}

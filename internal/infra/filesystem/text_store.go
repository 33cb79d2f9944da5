package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinford/case-rag/internal/core/ingestion"
	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/core/structuring"
)

// TextStore は抽出テキストを <caseID>.json として保存する
type TextStore struct {
	dir string
}

// NewTextStore は新しい TextStore を作成する
func NewTextStore(dir string) *TextStore {
	return &TextStore{dir: dir}
}

// SaveText はテキストを保存する（既存ファイルは上書き）
func (s *TextStore) SaveText(ctx context.Context, text *legalcase.CaseText) error {
	return writeJSON(s.path(text.CaseID), text)
}

// ListTexts は全テキストをケースID順で返す
func (s *TextStore) ListTexts(ctx context.Context) ([]*legalcase.CaseText, error) {
	paths, err := listFiles(s.dir, ".json")
	if err != nil {
		return nil, err
	}

	texts := make([]*legalcase.CaseText, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("テキストの読み込みに失敗 (%s): %w", path, err)
		}

		var text legalcase.CaseText
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("テキストの解析に失敗 (%s): %w", path, err)
		}
		// ファイル名を正とする
		text.CaseID = legalcase.CaseIDFromPath(path)
		texts = append(texts, &text)
	}
	return texts, nil
}

func (s *TextStore) path(caseID string) string {
	return filepath.Join(s.dir, caseID+".json")
}

var (
	_ ingestion.CaseTextStore = (*TextStore)(nil)
	_ structuring.TextSource  = (*TextStore)(nil)
)

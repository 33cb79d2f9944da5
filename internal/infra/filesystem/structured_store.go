package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/mo"

	"github.com/jinford/case-rag/internal/core/casegraph"
	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/core/retrieval"
	"github.com/jinford/case-rag/internal/core/structuring"
)

// StructuredStore はLLMの構造化出力を <caseID>.json として生のまま保存する
type StructuredStore struct {
	dir string
}

// NewStructuredStore は新しい StructuredStore を作成する
func NewStructuredStore(dir string) *StructuredStore {
	return &StructuredStore{dir: dir}
}

// Exists は出力ファイルが存在するかを返す
func (s *StructuredStore) Exists(ctx context.Context, caseID string) (bool, error) {
	_, err := os.Stat(s.path(caseID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("ファイル情報の取得に失敗: %w", err)
}

// SaveRaw は出力をバイト列のまま保存する
func (s *StructuredStore) SaveRaw(ctx context.Context, caseID string, raw []byte) error {
	return writeFileAtomic(s.path(caseID), raw)
}

// ListRaw は全出力をケースID順で返す（未検証）
func (s *StructuredStore) ListRaw(ctx context.Context) ([]legalcase.RawStructured, error) {
	paths, err := listFiles(s.dir, ".json")
	if err != nil {
		return nil, err
	}

	records := make([]legalcase.RawStructured, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("構造化出力の読み込みに失敗 (%s): %w", path, err)
		}
		records = append(records, legalcase.RawStructured{
			CaseID: legalcase.CaseIDFromPath(path),
			Raw:    data,
		})
	}
	return records, nil
}

// FindStructured は指定ケースの出力を検証して返す
func (s *StructuredStore) FindStructured(ctx context.Context, caseID string) (mo.Option[*legalcase.StructuredCase], error) {
	data, err := os.ReadFile(s.path(caseID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mo.None[*legalcase.StructuredCase](), nil
		}
		return mo.None[*legalcase.StructuredCase](), fmt.Errorf("構造化出力の読み込みに失敗: %w", err)
	}

	sc, err := legalcase.ParseStructured(caseID, data)
	if err != nil {
		return mo.None[*legalcase.StructuredCase](), err
	}
	return mo.Some(sc), nil
}

func (s *StructuredStore) path(caseID string) string {
	return filepath.Join(s.dir, caseID+".json")
}

var (
	_ structuring.StructuredStore = (*StructuredStore)(nil)
	_ embedding.StructuredSource  = (*StructuredStore)(nil)
	_ casegraph.StructuredSource  = (*StructuredStore)(nil)
	_ retrieval.CaseSource        = (*StructuredStore)(nil)
)

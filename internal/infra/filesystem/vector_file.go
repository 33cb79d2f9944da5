package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/legalcase"
	"github.com/jinford/case-rag/internal/core/retrieval"
)

// VectorFile はEmbeddingを1つのJSON配列ファイルに保存するベクトルストア
type VectorFile struct {
	path string
}

// NewVectorFile は新しい VectorFile を作成する
func NewVectorFile(path string) *VectorFile {
	return &VectorFile{path: path}
}

// Replace はファイル全体を entries で置き換える
func (v *VectorFile) Replace(ctx context.Context, entries []legalcase.EmbeddingEntry) error {
	if entries == nil {
		entries = []legalcase.EmbeddingEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("Embeddingのエンコードに失敗: %w", err)
	}
	return writeFileAtomic(v.path, data)
}

// Load は保存順に全Embeddingを返す
// ファイルが存在しない場合は空を返す
func (v *VectorFile) Load(ctx context.Context) ([]legalcase.EmbeddingEntry, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("Embeddingファイルの読み込みに失敗: %w", err)
	}

	var entries []legalcase.EmbeddingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("Embeddingファイルの解析に失敗: %w", err)
	}
	return entries, nil
}

var (
	_ embedding.VectorStore = (*VectorFile)(nil)
	_ retrieval.VectorStore = (*VectorFile)(nil)
)

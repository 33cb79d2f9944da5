package filesystem

import (
	"context"

	"github.com/jinford/case-rag/internal/core/ingestion"
)

// PDFDir は判決文PDFを置くディレクトリ
type PDFDir struct {
	dir string
}

// NewPDFDir は新しい PDFDir を作成する
func NewPDFDir(dir string) *PDFDir {
	return &PDFDir{dir: dir}
}

// ListDocuments は .pdf ファイルをファイル名順で返す
func (d *PDFDir) ListDocuments(ctx context.Context) ([]string, error) {
	return listFiles(d.dir, ".pdf")
}

var _ ingestion.DocumentSource = (*PDFDir)(nil)

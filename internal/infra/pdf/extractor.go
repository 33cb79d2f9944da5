package pdf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/case-rag/internal/core/ingestion"
)

// Extractor は ledongthuc/pdf を使用してPDFからページ単位のテキストを抽出する
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor は新しい Extractor を作成する
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractPages は読み取れたページのテキストを順に返す
// 抽出に失敗したページは警告を出してスキップする
func (e *Extractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	// ledongthuc/pdf は壊れたPDFで panic することがある
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("PDFの解析に失敗 (%s): %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages = make([]string, 0, total)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("ページのテキスト抽出に失敗", "file", path, "page", i, "error", err)
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// インターフェース実装の確認
var _ ingestion.TextExtractor = (*Extractor)(nil)

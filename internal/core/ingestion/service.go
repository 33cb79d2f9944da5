package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// IngestResult は取り込み処理の結果を表す
type IngestResult struct {
	Processed int
	Failed    int
	Duration  time.Duration
}

// IngestService はPDF判決文の取り込みユースケースを提供する
type IngestService struct {
	source    DocumentSource
	extractor TextExtractor
	store     CaseTextStore
	keepGoing bool
	logger    *slog.Logger
}

type ingestServiceOptions struct {
	keepGoing bool
	logger    *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger は IngestService にロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithKeepGoing はファイル単位の失敗で処理を中断しないようにする
func WithKeepGoing(keepGoing bool) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.keepGoing = keepGoing
	}
}

// NewIngestService は新しい IngestService を作成する
func NewIngestService(source DocumentSource, extractor TextExtractor, store CaseTextStore, opts ...IngestServiceOption) *IngestService {
	options := ingestServiceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &IngestService{
		source:    source,
		extractor: extractor,
		store:     store,
		keepGoing: options.keepGoing,
		logger:    options.logger,
	}
}

// Ingest は全PDFのテキストを抽出して保存する
func (s *IngestService) Ingest(ctx context.Context) (*IngestResult, error) {
	startTime := time.Now()

	paths, err := s.source.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("PDF一覧の取得に失敗: %w", err)
	}

	s.logger.Info("取り込みを開始", "count", len(paths), "keepGoing", s.keepGoing)

	result := &IngestResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.ingestFile(ctx, path); err != nil {
			if !s.keepGoing {
				return nil, err
			}
			s.logger.Error("取り込みに失敗", "file", filepath.Base(path), "error", err)
			result.Failed++
			continue
		}
		result.Processed++
	}

	result.Duration = time.Since(startTime)
	s.logger.Info("取り込みが完了",
		"processed", result.Processed,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *IngestService) ingestFile(ctx context.Context, path string) error {
	caseID := legalcase.CaseIDFromPath(path)

	pages, err := s.extractor.ExtractPages(ctx, path)
	if err != nil {
		return fmt.Errorf("テキスト抽出に失敗 (%s): %w", filepath.Base(path), err)
	}

	text := JoinPages(pages)
	if err := s.store.SaveText(ctx, &legalcase.CaseText{CaseID: caseID, Text: text}); err != nil {
		return fmt.Errorf("テキストの保存に失敗 (%s): %w", caseID, err)
	}

	s.logger.Info("テキストを抽出", "caseID", caseID, "pages", len(pages), "chars", len([]rune(text)))
	return nil
}

// JoinPages は各ページの末尾に改行を付けて連結する
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(page)
		b.WriteString("\n")
	}
	return b.String()
}

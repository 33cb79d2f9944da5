package casegraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// InsertResult はグラフ投入処理の結果を表す
type InsertResult struct {
	Inserted int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// ExportResult はデータセット出力の結果を表す
type ExportResult struct {
	Cases int
	Nodes int
	Edges int
}

// GraphService はケースグラフの構築ユースケースを提供する
type GraphService struct {
	source    StructuredSource
	repo      GraphRepository
	writer    DatasetWriter
	keepGoing bool
	logger    *slog.Logger
}

type graphServiceOptions struct {
	repo      GraphRepository
	writer    DatasetWriter
	keepGoing bool
	logger    *slog.Logger
}

// GraphServiceOption は GraphService のオプション設定
type GraphServiceOption func(*graphServiceOptions)

// WithGraphLogger はロガーを設定する
func WithGraphLogger(logger *slog.Logger) GraphServiceOption {
	return func(o *graphServiceOptions) {
		o.logger = logger
	}
}

// WithGraphRepository はグラフDBへの書き込み先を設定する（Insert で必須）
func WithGraphRepository(repo GraphRepository) GraphServiceOption {
	return func(o *graphServiceOptions) {
		o.repo = repo
	}
}

// WithDatasetWriter はデータセットの出力先を設定する（Export で必須）
func WithDatasetWriter(writer DatasetWriter) GraphServiceOption {
	return func(o *graphServiceOptions) {
		o.writer = writer
	}
}

// WithGraphKeepGoing はケース単位の書き込み失敗で処理を中断しないようにする
func WithGraphKeepGoing(keepGoing bool) GraphServiceOption {
	return func(o *graphServiceOptions) {
		o.keepGoing = keepGoing
	}
}

// NewGraphService は新しい GraphService を作成する
func NewGraphService(source StructuredSource, opts ...GraphServiceOption) *GraphService {
	options := graphServiceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &GraphService{
		source:    source,
		repo:      options.repo,
		writer:    options.writer,
		keepGoing: options.keepGoing,
		logger:    options.logger,
	}
}

// Insert は全構造化ケースをグラフDBにMERGEする
func (s *GraphService) Insert(ctx context.Context) (*InsertResult, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("グラフリポジトリが設定されていません")
	}
	startTime := time.Now()

	cases, skipped, err := s.loadCases(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.EnsureSchema(ctx); err != nil {
		s.logger.Warn("制約の作成に失敗（続行します）", "error", err)
	}

	s.logger.Info("グラフ投入を開始", "cases", len(cases))

	result := &InsertResult{Skipped: skipped}
	for _, sc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.repo.UpsertCase(ctx, sc); err != nil {
			if !s.keepGoing {
				return nil, fmt.Errorf("ケースの投入に失敗 (%s): %w", sc.CaseID, err)
			}
			s.logger.Error("ケースの投入に失敗", "caseID", sc.CaseID, "error", err)
			result.Failed++
			continue
		}
		result.Inserted++
	}

	result.Duration = time.Since(startTime)
	s.logger.Info("グラフ投入が完了",
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}

// Export はノード・エッジのデータセットをファイルに出力する
func (s *GraphService) Export(ctx context.Context) (*ExportResult, error) {
	if s.writer == nil {
		return nil, fmt.Errorf("データセットの出力先が設定されていません")
	}

	cases, _, err := s.loadCases(ctx)
	if err != nil {
		return nil, err
	}

	ds := BuildDataset(cases)
	if err := s.writer.WriteDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("データセットの書き込みに失敗: %w", err)
	}

	s.logger.Info("グラフデータセットを出力", "cases", len(cases), "nodes", len(ds.Nodes), "edges", len(ds.Edges))
	return &ExportResult{Cases: len(cases), Nodes: len(ds.Nodes), Edges: len(ds.Edges)}, nil
}

func (s *GraphService) loadCases(ctx context.Context) ([]*legalcase.StructuredCase, int, error) {
	records, err := s.source.ListRaw(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("構造化出力の読み込みに失敗: %w", err)
	}

	cases, invalid := legalcase.ParseAll(records)
	for _, err := range invalid {
		s.logger.Warn("不正な構造化出力をスキップ", "error", err)
	}
	return cases, len(invalid), nil
}

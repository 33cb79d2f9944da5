package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore は保存済みEmbeddingの読み出しインターフェース
type VectorStore interface {
	Load(ctx context.Context) ([]legalcase.EmbeddingEntry, error)
}

// GraphMatcher は事実・争点の部分一致でケースを検索するインターフェース
// ヒットした行ごとにケースIDを1つ返す（同一ケースの重複を含む）
type GraphMatcher interface {
	MatchFragments(ctx context.Context, facts, issues []string) ([]string, error)
}

// CaseSource はクエリケースの構造化データを取得するインターフェース
type CaseSource interface {
	FindStructured(ctx context.Context, caseID string) (mo.Option[*legalcase.StructuredCase], error)
}

const (
	// DefaultTopK は返却件数のデフォルト値
	DefaultTopK = 5
)

// Service は関連ケース検索のユースケースを提供する
type Service struct {
	cases    CaseSource
	embedder Embedder
	vectors  VectorStore
	graph    GraphMatcher
	weights  Weights
	topK     int
	logger   *slog.Logger
}

type serviceOptions struct {
	weights Weights
	topK    int
	logger  *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithWeights はハイブリッドスコアの重みを上書きする
func WithWeights(w Weights) ServiceOption {
	return func(o *serviceOptions) {
		o.weights = w
	}
}

// WithTopK は返却件数を上書きする
func WithTopK(k int) ServiceOption {
	return func(o *serviceOptions) {
		o.topK = k
	}
}

// WithRetrievalLogger はロガーを設定する
func WithRetrievalLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は新しい Service を作成する
// ベクトル検索を使わないコマンドでは embedder / vectors に nil を、
// グラフ検索を使わないコマンドでは graph に nil を渡してよい
func NewService(cases CaseSource, embedder Embedder, vectors VectorStore, graph GraphMatcher, opts ...ServiceOption) *Service {
	options := serviceOptions{
		weights: DefaultWeights(),
		topK:    DefaultTopK,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.topK <= 0 {
		options.topK = DefaultTopK
	}

	return &Service{
		cases:    cases,
		embedder: embedder,
		vectors:  vectors,
		graph:    graph,
		weights:  options.weights,
		topK:     options.topK,
		logger:   options.logger,
	}
}

// Hybrid はベクトル類似度とグラフ一致数を統合して関連ケースを返す
func (s *Service) Hybrid(ctx context.Context, caseID string) ([]*Result, error) {
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}

	query, err := s.loadQueryCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	vectorScores, err := s.vectorSignal(ctx, legalcase.EmbeddingText(query))
	if err != nil {
		return nil, err
	}

	rawGraph, err := s.graphSignal(ctx, query)
	if err != nil {
		return nil, err
	}
	normalized := NormalizeGraph(rawGraph)

	fused := Fuse(vectorScores, normalized, s.weights)
	ranked := TopK(Exclude(Rank(fused), query.CaseID), s.topK)

	s.logger.Info("ハイブリッド検索が完了",
		"caseID", query.CaseID,
		"vectorCandidates", vectorScores.Len(),
		"graphCandidates", rawGraph.Len(),
		"results", len(ranked),
	)

	results := make([]*Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, &Result{
			CaseID:       r.CaseID,
			Score:        r.Score,
			VectorScore:  vectorScores.Get(r.CaseID),
			GraphScore:   normalized.Get(r.CaseID),
			GraphMatches: int(rawGraph.Get(r.CaseID)),
		})
	}
	return results, nil
}

// GraphOnly はグラフ一致数（正規化なし）のみで関連ケースを返す
func (s *Service) GraphOnly(ctx context.Context, caseID string) ([]*Result, error) {
	query, err := s.loadQueryCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	raw, err := s.graphSignal(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked := TopK(Exclude(Rank(raw), query.CaseID), s.topK)

	s.logger.Info("グラフ検索が完了",
		"caseID", query.CaseID,
		"graphCandidates", raw.Len(),
		"results", len(ranked),
	)

	results := make([]*Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, &Result{
			CaseID:       r.CaseID,
			Score:        r.Score,
			GraphMatches: int(r.Score),
		})
	}
	return results, nil
}

// VectorOnly はベクトル類似度のみで関連ケースを返す
func (s *Service) VectorOnly(ctx context.Context, caseID string) ([]*Result, error) {
	query, err := s.loadQueryCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	scores, err := s.vectorSignal(ctx, legalcase.EmbeddingText(query))
	if err != nil {
		return nil, err
	}

	ranked := TopK(Exclude(Rank(scores), query.CaseID), s.topK)
	return toVectorResults(ranked), nil
}

// Query は自由記述のテキストに類似するケースを返す
func (s *Service) Query(ctx context.Context, text string) ([]*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	scores, err := s.vectorSignal(ctx, text)
	if err != nil {
		return nil, err
	}

	ranked := TopK(Rank(scores), s.topK)
	return toVectorResults(ranked), nil
}

func (s *Service) loadQueryCase(ctx context.Context, caseID string) (*legalcase.StructuredCase, error) {
	id := legalcase.CaseIDFromPath(caseID)
	if id == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCaseID, caseID)
	}

	found, err := s.cases.FindStructured(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("クエリケースの読み込みに失敗 (%s): %w", id, err)
	}
	if found.IsAbsent() {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return found.MustGet(), nil
}

// vectorSignal は全保存ベクトルとのコサイン類似度を計算する
// 同一ケースに複数行（チャンク）がある場合は最大値を採用する
func (s *Service) vectorSignal(ctx context.Context, text string) (*Scores, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, fmt.Errorf("ベクトル検索が構成されていません")
	}

	entries, err := s.vectors.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("Embeddingの読み込みに失敗: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyStore
	}

	queryVector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("クエリのEmbedding生成に失敗: %w", err)
	}

	scores := NewScores()
	for _, entry := range entries {
		if len(entry.Vector) != len(queryVector) {
			return nil, fmt.Errorf("%w: ケース %s は %d 次元、クエリは %d 次元",
				ErrDimensionMismatch, entry.CaseID, len(entry.Vector), len(queryVector))
		}
		scores.Max(entry.CaseID, Cosine(queryVector, entry.Vector))
	}
	return scores, nil
}

// graphSignal は事実・争点ごとの部分一致件数を集計する
func (s *Service) graphSignal(ctx context.Context, query *legalcase.StructuredCase) (*Scores, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("グラフ検索が構成されていません")
	}

	// 空文字列は全ノードに一致してしまうため除外する
	facts := nonBlank(query.Facts)
	issues := nonBlank(query.Issues)

	ids, err := s.graph.MatchFragments(ctx, facts, issues)
	if err != nil {
		return nil, fmt.Errorf("グラフ検索に失敗: %w", err)
	}
	return CountMatches(ids), nil
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func toVectorResults(ranked []Ranked) []*Result {
	results := make([]*Result, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, &Result{
			CaseID:      r.CaseID,
			Score:       r.Score,
			VectorScore: r.Score,
		})
	}
	return results
}

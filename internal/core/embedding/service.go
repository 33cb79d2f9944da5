package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

const (
	// DefaultMaxInputTokens は1テキストあたりの最大入力トークン数
	DefaultMaxInputTokens = 8191
)

// EmbedResult はEmbedding生成処理の結果を表す
type EmbedResult struct {
	Cases    int
	Entries  int
	Skipped  int
	Model    string
	Duration time.Duration
}

// EmbedService は構造化ケースのEmbeddingを生成して保存するユースケースを提供する
type EmbedService struct {
	source         StructuredSource
	embedder       Embedder
	store          VectorStore
	limiter        TokenLimiter
	chunkSize      int
	maxInputTokens int
	logger         *slog.Logger
}

type embedServiceOptions struct {
	limiter        TokenLimiter
	chunkSize      int
	maxInputTokens int
	logger         *slog.Logger
}

// EmbedServiceOption は EmbedService のオプション設定
type EmbedServiceOption func(*embedServiceOptions)

// WithEmbedLogger はロガーを設定する
func WithEmbedLogger(logger *slog.Logger) EmbedServiceOption {
	return func(o *embedServiceOptions) {
		o.logger = logger
	}
}

// WithChunkSize はテキストを size 語ごとに分割して個別にEmbeddingする
// 0 の場合は分割しない
func WithChunkSize(size int) EmbedServiceOption {
	return func(o *embedServiceOptions) {
		o.chunkSize = size
	}
}

// WithTokenLimiter は入力トークン数の上限で切り詰めるリミッタを設定する
func WithTokenLimiter(limiter TokenLimiter, maxTokens int) EmbedServiceOption {
	return func(o *embedServiceOptions) {
		o.limiter = limiter
		o.maxInputTokens = maxTokens
	}
}

// NewEmbedService は新しい EmbedService を作成する
func NewEmbedService(source StructuredSource, embedder Embedder, store VectorStore, opts ...EmbedServiceOption) *EmbedService {
	options := embedServiceOptions{
		maxInputTokens: DefaultMaxInputTokens,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.maxInputTokens <= 0 {
		options.maxInputTokens = DefaultMaxInputTokens
	}

	return &EmbedService{
		source:         source,
		embedder:       embedder,
		store:          store,
		limiter:        options.limiter,
		chunkSize:      options.chunkSize,
		maxInputTokens: options.maxInputTokens,
		logger:         options.logger,
	}
}

// pendingText はEmbedding待ちの1テキスト
type pendingText struct {
	caseID string
	chunk  int
	text   string
}

// Embed は全構造化ケースのEmbeddingを生成し、ベクトルストアを置き換える
// 途中でエラーが発生した場合はストアを変更しない
func (s *EmbedService) Embed(ctx context.Context) (*EmbedResult, error) {
	startTime := time.Now()

	records, err := s.source.ListRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("構造化出力の読み込みに失敗: %w", err)
	}

	cases, invalid := legalcase.ParseAll(records)
	for _, err := range invalid {
		s.logger.Warn("不正な構造化出力をスキップ", "error", err)
	}

	result := &EmbedResult{Skipped: len(invalid), Model: s.embedder.ModelName()}

	pending := make([]pendingText, 0, len(cases))
	for _, sc := range cases {
		texts := s.prepare(sc)
		if len(texts) == 0 {
			s.logger.Warn("埋め込み対象のテキストがないためスキップ", "caseID", sc.CaseID)
			result.Skipped++
			continue
		}
		pending = append(pending, texts...)
		result.Cases++
	}

	s.logger.Info("Embedding生成を開始",
		"cases", result.Cases,
		"texts", len(pending),
		"model", result.Model,
		"chunkSize", s.chunkSize,
	)

	entries, err := s.embedAll(ctx, pending)
	if err != nil {
		return nil, err
	}

	if err := s.store.Replace(ctx, entries); err != nil {
		return nil, fmt.Errorf("Embeddingの保存に失敗: %w", err)
	}

	result.Entries = len(entries)
	result.Duration = time.Since(startTime)

	s.logger.Info("Embedding生成が完了",
		"cases", result.Cases,
		"entries", result.Entries,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *EmbedService) prepare(sc *legalcase.StructuredCase) []pendingText {
	text := legalcase.EmbeddingText(sc)

	var chunks []string
	if s.chunkSize > 0 {
		chunks = legalcase.ChunkWords(text, s.chunkSize)
	} else {
		chunks = []string{text}
	}

	texts := make([]pendingText, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if s.limiter != nil {
			chunk = s.limiter.TruncateTokens(chunk, s.maxInputTokens)
		}
		texts = append(texts, pendingText{caseID: sc.CaseID, chunk: i, text: chunk})
	}
	return texts
}

func (s *EmbedService) embedAll(ctx context.Context, pending []pendingText) ([]legalcase.EmbeddingEntry, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	entries := make([]legalcase.EmbeddingEntry, 0, len(pending))
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("Embedding生成に失敗 (%s): %w", batch[0].caseID, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("Embeddingの件数が一致しません: expected %d, got %d", len(batch), len(vectors))
		}

		for i, p := range batch {
			entries = append(entries, legalcase.EmbeddingEntry{
				CaseID: p.caseID,
				Chunk:  p.chunk,
				Vector: vectors[i],
			})
		}

		s.logger.Debug("バッチを処理", "from", start, "to", end)
	}
	return entries, nil
}

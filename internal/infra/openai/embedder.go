package openai

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/retrieval"
)

// Embedder はOpenAI互換のEmbeddings APIを使用してテキストをベクトルに変換する
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	backoff   time.Duration
	limiter   *rate.Limiter
}

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

	// MaxBatch はEmbeddings APIに1回で送る最大件数
	MaxBatch = 100

	// MaxRateLimitRetries はレート制限エラー時の最大リトライ回数
	MaxRateLimitRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

type embedderOptions struct {
	baseURL           string
	model             string
	dimension         int
	backoff           time.Duration
	requestsPerMinute int
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingBaseURL はOpenAI互換エンドポイントのURLを上書きする
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を指定する（0 の場合はモデルの既定値）
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithRateLimitBackoff はレート制限時の基底待機時間を上書きする
func WithRateLimitBackoff(d time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.backoff = d
	}
}

// WithEmbeddingRequestsPerMinute は1分あたりのリクエスト数を制限する（0 で制限なし）
func WithEmbeddingRequestsPerMinute(n int) EmbedderOption {
	return func(o *embedderOptions) {
		o.requestsPerMinute = n
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultEmbeddingModel,
		backoff: BaseBackoff,
	}
	for _, opt := range opts {
		opt(&options)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.baseURL))
	}

	return &Embedder{
		client:    openai.NewClient(requestOpts...),
		model:     options.model,
		dimension: options.dimension,
		backoff:   options.backoff,
		limiter:   newRequestLimiter(options.requestsPerMinute),
	}, nil
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed はバッチで Embedding を生成する（最大100件）
// 結果は入力と同じ順序で返す
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	if len(texts) > MaxBatch {
		return nil, fmt.Errorf("batch size exceeds maximum of %d", MaxBatch)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.createWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	embeddings := make([][]float32, 0, len(data))
	for _, d := range data {
		vector := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vector[i] = float32(v)
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}

func (e *Embedder) createWithRetry(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRateLimitRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * e.backoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		if err := waitLimiter(ctx, e.limiter); err != nil {
			return nil, err
		}

		resp, err := e.client.Embeddings.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !isRateLimitError(err) {
			break
		}
	}

	return nil, fmt.Errorf("failed to generate embeddings: %w", lastErr)
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension は指定されたベクトル次元数を返す（0 はモデル既定）
func (e *Embedder) Dimension() int {
	return e.dimension
}

// MaxBatchSize はバッチ処理の最大サイズを返す
func (e *Embedder) MaxBatchSize() int {
	return MaxBatch
}

// インターフェース実装の確認
var (
	_ embedding.Embedder = (*Embedder)(nil)
	_ retrieval.Embedder = (*Embedder)(nil)
)

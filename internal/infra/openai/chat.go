package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"github.com/jinford/case-rag/internal/core/structuring"
)

const (
	// DefaultChatModel はデフォルトで使用するチャットモデル
	DefaultChatModel = "Qwen/Qwen2.5-7B-Instruct"

	// DefaultBaseURL はOpenAI互換のHugging Face推論ルーター
	DefaultBaseURL = "https://router.huggingface.co/v1"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("inference API key not set: please set LLM_API_KEY or HF_TOKEN environment variable")

	// ErrNoChoices は応答に候補が含まれていない場合のエラー
	ErrNoChoices = errors.New("no completion choices returned")
)

type clientOptions struct {
	baseURL           string
	model             string
	timeout           time.Duration
	requestsPerMinute int
}

// ClientOption は ChatClient のオプション設定
type ClientOption func(*clientOptions)

// WithBaseURL はOpenAI互換エンドポイントのURLを上書きする
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithChatModel はモデル名を上書きする
func WithChatModel(model string) ClientOption {
	return func(o *clientOptions) {
		o.model = model
	}
}

// WithTimeout は1回の呼び出しのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithRequestsPerMinute は1分あたりのリクエスト数を制限する（0 で制限なし）
func WithRequestsPerMinute(n int) ClientOption {
	return func(o *clientOptions) {
		o.requestsPerMinute = n
	}
}

// ChatClient はOpenAI互換のChat Completions APIを使用したLLMクライアント実装
// リトライは呼び出し側のリトライ方針に任せるため、SDKの自動リトライは無効にしている
type ChatClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewChatClient は新しい ChatClient を作成する
func NewChatClient(apiKey string, opts ...ClientOption) (*ChatClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		baseURL: DefaultBaseURL,
		model:   DefaultChatModel,
		timeout: DefaultTimeout,
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

	return &ChatClient{
		client:  openai.NewClient(requestOpts...),
		model:   options.model,
		timeout: options.timeout,
		limiter: newRequestLimiter(options.requestsPerMinute),
	}, nil
}

// ModelName はモデル名を返す
func (c *ChatClient) ModelName() string {
	return c.model
}

// GenerateCompletion はシステムメッセージとユーザーメッセージから応答を生成する
func (c *ChatClient) GenerateCompletion(ctx context.Context, req structuring.CompletionRequest) (structuring.CompletionResponse, error) {
	if err := waitLimiter(ctx, c.limiter); err != nil {
		return structuring.CompletionResponse{}, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return structuring.CompletionResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return structuring.CompletionResponse{}, ErrNoChoices
	}

	return structuring.CompletionResponse{
		Content:    completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
		Model:      string(completion.Model),
	}, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// インターフェース実装の確認
var _ structuring.ChatClient = (*ChatClient)(nil)

package structuring

import "context"

// ChatClient はLLMサービスとのやり取りを抽象化するインターフェース
type ChatClient interface {
	// GenerateCompletion はプロンプトに基づいてLLMから応答を生成する
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompletionRequest はLLMへのリクエストパラメータ
type CompletionRequest struct {
	// System はシステムメッセージ
	System string

	// Prompt はユーザーメッセージ
	Prompt string

	// Temperature は生成の多様性を制御する (0.0-2.0)
	Temperature float64

	// MaxTokens は生成する最大トークン数
	MaxTokens int
}

// CompletionResponse はLLMからのレスポンス
type CompletionResponse struct {
	// Content は生成されたテキスト
	Content string

	// TokensUsed は使用されたトークン数
	TokensUsed int

	// Model は実際に使用されたモデル名
	Model string
}

// TokenCounter はトークン数を数えるインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

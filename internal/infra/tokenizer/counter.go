package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/case-rag/internal/core/embedding"
	"github.com/jinford/case-rag/internal/core/structuring"
)

// DefaultEncoding はトークン数の見積もりに使うエンコーディング
const DefaultEncoding = "cl100k_base"

// TokenCounter は tiktoken を利用したトークン数のカウントと切り詰めを提供する
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は cl100k_base エンコーディングで TokenCounter を作成する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// TruncateTokens はテキストを先頭から maxTokens トークンに切り詰める
func (tc *TokenCounter) TruncateTokens(text string, maxTokens int) string {
	if tc.encoding == nil || maxTokens <= 0 {
		return text
	}
	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return tc.encoding.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var (
	_ structuring.TokenCounter = (*TokenCounter)(nil)
	_ embedding.TokenLimiter   = (*TokenCounter)(nil)
)

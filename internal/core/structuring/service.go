package structuring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

const (
	// DefaultTextLimit はLLMに渡す本文の最大文字数
	DefaultTextLimit = 12000

	// DefaultMaxTokens は応答の最大トークン数
	DefaultMaxTokens = 800
)

// StructureResult は構造化処理の結果を表す
type StructureResult struct {
	Processed int
	Skipped   int
	Failed    int
	// Invalid は保存済みだが検証に失敗した出力の件数（Processed に含まれる）
	Invalid  int
	Duration time.Duration
}

// StructureService は判決文テキストをLLMで構造化するユースケースを提供する
type StructureService struct {
	texts        TextSource
	store        StructuredStore
	llm          ChatClient
	tokenCounter TokenCounter
	retry        RetryPolicy
	textLimit    int
	maxTokens    int
	temperature  float64
	logger       *slog.Logger
}

type structureServiceOptions struct {
	tokenCounter TokenCounter
	retry        RetryPolicy
	textLimit    int
	maxTokens    int
	temperature  float64
	logger       *slog.Logger
}

// StructureServiceOption は StructureService のオプション設定
type StructureServiceOption func(*structureServiceOptions)

// WithStructureLogger はロガーを設定する
func WithStructureLogger(logger *slog.Logger) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.logger = logger
	}
}

// WithRetryPolicy はリトライ方針を上書きする
func WithRetryPolicy(p RetryPolicy) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.retry = p
	}
}

// WithTextLimit は本文の最大文字数を上書きする
func WithTextLimit(limit int) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.textLimit = limit
	}
}

// WithMaxTokens は応答の最大トークン数を上書きする
func WithMaxTokens(n int) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.maxTokens = n
	}
}

// WithTemperature は生成温度を上書きする（デフォルト 0）
func WithTemperature(t float64) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.temperature = t
	}
}

// WithTokenCounter はプロンプトのトークン数をログ出力するためのカウンタを設定する
func WithTokenCounter(counter TokenCounter) StructureServiceOption {
	return func(o *structureServiceOptions) {
		o.tokenCounter = counter
	}
}

// NewStructureService は新しい StructureService を作成する
func NewStructureService(texts TextSource, store StructuredStore, llm ChatClient, opts ...StructureServiceOption) *StructureService {
	options := structureServiceOptions{
		retry:     DefaultRetryPolicy(),
		textLimit: DefaultTextLimit,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &StructureService{
		texts:        texts,
		store:        store,
		llm:          llm,
		tokenCounter: options.tokenCounter,
		retry:        options.retry,
		textLimit:    options.textLimit,
		maxTokens:    options.maxTokens,
		temperature:  options.temperature,
		logger:       options.logger,
	}
}

// Structure は未処理のテキストをすべて構造化して保存する
// 既に出力が存在するケースはスキップするため、中断後の再実行で続きから処理できる
func (s *StructureService) Structure(ctx context.Context) (*StructureResult, error) {
	startTime := time.Now()

	texts, err := s.texts.ListTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("テキスト一覧の取得に失敗: %w", err)
	}

	s.logger.Info("構造化を開始", "count", len(texts))

	result := &StructureResult{}
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exists, err := s.store.Exists(ctx, text.CaseID)
		if err != nil {
			return nil, fmt.Errorf("出力の存在確認に失敗 (%s): %w", text.CaseID, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		raw, err := s.complete(ctx, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, err
			}
			s.logger.Error("構造化に失敗", "file", text.CaseID+".json", "error", err)
			result.Failed++
			continue
		}

		if err := s.store.SaveRaw(ctx, text.CaseID, []byte(raw)); err != nil {
			return nil, fmt.Errorf("構造化出力の保存に失敗 (%s): %w", text.CaseID, err)
		}
		result.Processed++

		if _, err := legalcase.ParseStructured(text.CaseID, []byte(raw)); err != nil {
			s.logger.Warn("構造化出力の検証に失敗", "caseID", text.CaseID, "error", err)
			result.Invalid++
		}
	}

	result.Duration = time.Since(startTime)
	s.logger.Info("構造化が完了",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"invalid", result.Invalid,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *StructureService) complete(ctx context.Context, text *legalcase.CaseText) (string, error) {
	req := CompletionRequest{
		System:      SystemPrompt,
		Prompt:      legalcase.TruncateRunes(text.Text, s.textLimit),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	if s.tokenCounter != nil {
		s.logger.Debug("プロンプトのトークン数",
			"caseID", text.CaseID,
			"tokens", s.tokenCounter.CountTokens(req.System)+s.tokenCounter.CountTokens(req.Prompt),
		)
	}

	var content string
	err := s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := s.llm.GenerateCompletion(ctx, req)
		if err != nil {
			s.logger.Warn("LLM呼び出しに失敗", "caseID", text.CaseID, "attempt", attempt, "error", err)
			return err
		}
		content = resp.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

package legalcase

import "errors"

var (
	// ErrMalformedOutput は LLM 出力が JSON オブジェクトとして解析できない場合のエラー
	ErrMalformedOutput = errors.New("structured output is not a JSON object")

	// ErrMissingField は必須フィールドが存在しない場合のエラー
	ErrMissingField = errors.New("structured output is missing a required field")

	// ErrInvalidField はフィールドの型が想定と異なる場合のエラー
	ErrInvalidField = errors.New("structured output has a field of unexpected type")
)

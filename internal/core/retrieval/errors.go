package retrieval

import "errors"

var (
	// ErrCaseNotFound はクエリケースの構造化データが見つからない場合のエラー
	ErrCaseNotFound = errors.New("query case not found")

	// ErrDimensionMismatch は保存済みベクトルとクエリベクトルの次元が一致しない場合のエラー
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyStore はベクトルストアが空の場合のエラー
	ErrEmptyStore = errors.New("vector store is empty")

	// ErrEmptyQuery は検索文が空の場合のエラー
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrEmptyCaseID はクエリケースIDが空の場合のエラー
	ErrEmptyCaseID = errors.New("query case id is empty")

	// ErrInvalidWeights は重みが負またはNaNの場合のエラー
	ErrInvalidWeights = errors.New("weights must be non-negative")
)

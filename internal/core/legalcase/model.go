package legalcase

import (
	"path/filepath"
	"strings"
)

// CaseText は取り込み段階で抽出された判決文テキストを表す
type CaseText struct {
	CaseID string `json:"case_id"`
	Text   string `json:"text"`
}

// StructuredCase は LLM が抽出した判決の構造化フィールドを表す
type StructuredCase struct {
	CaseID    string   `json:"-"`
	Title     string   `json:"case_title"`
	Facts     []string `json:"key_facts"`
	Issues    []string `json:"legal_issues"`
	Decision  string   `json:"decision"`
	Reasoning string   `json:"reasoning_summary"`
}

// EmbeddingEntry はケース（またはそのチャンク）の埋め込みベクトルを表す
// Chunk はチャンク分割しない場合は常に0
type EmbeddingEntry struct {
	CaseID string    `json:"case_id"`
	Chunk  int       `json:"chunk,omitempty"`
	Vector []float32 `json:"embedding"`
}

// artifactExtensions はケースIDから除去するファイル拡張子
var artifactExtensions = map[string]bool{
	".pdf":  true,
	".json": true,
}

// CaseIDFromPath はファイルパスまたはファイル名からケースIDを導出する
// 例: "data/raw_cases/Jallikattu-Judgement.pdf" -> "Jallikattu-Judgement"
// ID にドットが含まれても壊れないよう、既知の拡張子のみ除去する
func CaseIDFromPath(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	ext := filepath.Ext(base)
	if artifactExtensions[strings.ToLower(ext)] {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// RawStructured は保存済みのLLM出力（未検証）
type RawStructured struct {
	CaseID string
	Raw    []byte
}

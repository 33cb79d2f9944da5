package legalcase

import "strings"

// EmbeddingText は埋め込み対象テキストを組み立てる
// 構築時とクエリ時で必ず同じ規則を使うこと（類似度の比較可能性が崩れるため）
func EmbeddingText(sc *StructuredCase) string {
	if sc == nil {
		return ""
	}
	return strings.Join(sc.Facts, " ") + " " + strings.Join(sc.Issues, " ")
}

// ChunkWords はテキストを size 語ごとのチャンクに分割する
// size <= 0 の場合は分割しない
func ChunkWords(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// TruncateRunes はテキストを先頭から limit 文字（rune単位）に切り詰める
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

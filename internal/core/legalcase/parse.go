package legalcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	fieldTitle     = "case_title"
	fieldFacts     = "key_facts"
	fieldIssues    = "legal_issues"
	fieldDecision  = "decision"
	fieldReasoning = "reasoning_summary"
)

// ParseStructured は LLM の生出力を検証して StructuredCase に変換する
//
// 出力はディスク上では未検証のまま保存されるため、下流の段階は必ずこの関数を経由する。
// Markdownのコードフェンスは除去し、key_facts / legal_issues は文字列配列または
// カンマ区切りの単一文字列のどちらも受け付ける。
func ParseStructured(caseID string, raw []byte) (*StructuredCase, error) {
	body := stripCodeFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		if err == nil {
			err = fmt.Errorf("null document")
		}
		return nil, fmt.Errorf("%w: case %s: %v", ErrMalformedOutput, caseID, err)
	}

	sc := &StructuredCase{CaseID: caseID}

	var err error
	if sc.Facts, err = requiredList(caseID, fields, fieldFacts); err != nil {
		return nil, err
	}
	if sc.Issues, err = requiredList(caseID, fields, fieldIssues); err != nil {
		return nil, err
	}
	if sc.Title, err = optionalString(caseID, fields, fieldTitle); err != nil {
		return nil, err
	}
	if sc.Decision, err = optionalString(caseID, fields, fieldDecision); err != nil {
		return nil, err
	}
	if sc.Reasoning, err = optionalString(caseID, fields, fieldReasoning); err != nil {
		return nil, err
	}

	return sc, nil
}

// requiredList は必須のリスト項目を読み出す。null は未設定と同じ扱い
func requiredList(caseID string, fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: case %s: %s", ErrMissingField, caseID, name)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list), nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return cleanList(strings.Split(single, ",")), nil
	}

	return nil, fmt.Errorf("%w: case %s: %s must be a string or an array of strings", ErrInvalidField, caseID, name)
}

func optionalString(caseID string, fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: case %s: %s must be a string", ErrInvalidField, caseID, name)
	}
	return s, nil
}

// cleanList は各要素をトリムし、空要素を除外する
func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		cleaned = append(cleaned, item)
	}
	return cleaned
}

// stripCodeFence は ```json ... ``` 形式の囲みを除去する
func stripCodeFence(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}

	// 先頭行（```json など）を落とす
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		return body
	}

	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

// ParseAll は複数の出力をまとめて検証する
// 検証に失敗したものは結果から除き、エラーとして返す
func ParseAll(records []RawStructured) ([]*StructuredCase, []error) {
	cases := make([]*StructuredCase, 0, len(records))
	var errs []error
	for _, rec := range records {
		sc, err := ParseStructured(rec.CaseID, rec.Raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cases = append(cases, sc)
	}
	return cases, errs
}

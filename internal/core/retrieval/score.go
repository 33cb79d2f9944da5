package retrieval

import (
	"math"
	"sort"
)

// Scores は挿入順を保持するケースIDごとのスコア集合
// 同点時の順位を再現可能にするため、map ではなくこの型で受け渡す
type Scores struct {
	keys   []string
	values map[string]float64
}

// NewScores は空の Scores を作成する
func NewScores() *Scores {
	return &Scores{values: make(map[string]float64)}
}

// Set はスコアを設定する（初出時のみ挿入順に追加）
func (s *Scores) Set(caseID string, score float64) {
	if _, ok := s.values[caseID]; !ok {
		s.keys = append(s.keys, caseID)
	}
	s.values[caseID] = score
}

// Add はスコアを加算する
func (s *Scores) Add(caseID string, delta float64) {
	s.Set(caseID, s.values[caseID]+delta)
}

// Max は既存スコアより大きい場合のみ更新する
func (s *Scores) Max(caseID string, score float64) {
	if current, ok := s.values[caseID]; ok && current >= score {
		return
	}
	s.Set(caseID, score)
}

// Get はスコアを返す。存在しない場合は 0
func (s *Scores) Get(caseID string) float64 {
	return s.values[caseID]
}

// Has はケースIDが含まれるかを返す
func (s *Scores) Has(caseID string) bool {
	_, ok := s.values[caseID]
	return ok
}

// Keys は挿入順のケースID一覧を返す
func (s *Scores) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len は要素数を返す
func (s *Scores) Len() int {
	return len(s.keys)
}

// Weights はハイブリッドスコアの重み
type Weights struct {
	Vector float64
	Graph  float64
}

// DefaultWeights はデフォルトの重み（0.5 / 0.5）を返す
func DefaultWeights() Weights {
	return Weights{Vector: 0.5, Graph: 0.5}
}

// Validate は重みが非負であることを確認する
func (w Weights) Validate() error {
	if w.Vector < 0 || w.Graph < 0 || math.IsNaN(w.Vector) || math.IsNaN(w.Graph) {
		return ErrInvalidWeights
	}
	return nil
}

// Ranked はランキング済みの1件
type Ranked struct {
	CaseID string
	Score  float64
}

// Cosine はコサイン類似度を返す
// どちらかがゼロベクトルの場合は 0 を返す
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CountMatches はグラフ検索でヒットしたケースIDを集計する
// 1行のヒットにつき1点加算する
func CountMatches(caseIDs []string) *Scores {
	scores := NewScores()
	for _, id := range caseIDs {
		scores.Add(id, 1)
	}
	return scores
}

// NormalizeGraph はグラフスコアを最大値で割って [0,1] に正規化する
// ヒットがない場合は除数を 1 とする
func NormalizeGraph(raw *Scores) *Scores {
	divisor := 0.0
	for _, id := range raw.keys {
		if v := raw.values[id]; v > divisor {
			divisor = v
		}
	}
	if divisor == 0 {
		divisor = 1
	}

	normalized := NewScores()
	for _, id := range raw.keys {
		normalized.Set(id, raw.values[id]/divisor)
	}
	return normalized
}

// Fuse はベクトルスコアと正規化済みグラフスコアを重み付き和で統合する
// ベクトルスコアを持つケースのみが対象で、グラフのみでヒットしたケースは含まれない
func Fuse(vector, graphNorm *Scores, w Weights) *Scores {
	fused := NewScores()
	for _, id := range vector.keys {
		fused.Set(id, w.Vector*vector.values[id]+w.Graph*graphNorm.Get(id))
	}
	return fused
}

// Rank はスコアの降順に並べる（同点は挿入順を維持）
func Rank(s *Scores) []Ranked {
	ranked := make([]Ranked, 0, s.Len())
	for _, id := range s.keys {
		ranked = append(ranked, Ranked{CaseID: id, Score: s.values[id]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Exclude は指定ケースを結果から除外する
func Exclude(ranked []Ranked, caseID string) []Ranked {
	filtered := make([]Ranked, 0, len(ranked))
	for _, r := range ranked {
		if r.CaseID == caseID {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// TopK は上位 k 件に切り詰める（k <= 0 の場合は全件）
func TopK(ranked []Ranked, k int) []Ranked {
	if k <= 0 || len(ranked) <= k {
		return ranked
	}
	return ranked[:k]
}

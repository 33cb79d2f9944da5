package retrieval

// Result は関連ケース検索の1件を表す
type Result struct {
	CaseID string  `json:"caseID"`
	Score  float64 `json:"score"`

	// ハイブリッド検索時の内訳
	VectorScore  float64 `json:"vectorScore,omitempty"`
	GraphScore   float64 `json:"graphScore,omitempty"`
	GraphMatches int     `json:"graphMatches,omitempty"`
}

// Mode は検索方式
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeGraph  Mode = "graph"
	ModeVector Mode = "vector"
	ModeQuery  Mode = "query"
)

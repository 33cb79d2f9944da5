package casegraph

// ノード種別
const (
	NodeTypeCase  = "Case"
	NodeTypeFact  = "Fact"
	NodeTypeIssue = "Issue"
)

// エッジ種別
const (
	EdgeHasFact  = "HAS_FACT"
	EdgeHasIssue = "HAS_ISSUE"
)

// Node はグラフデータセットのノード
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Edge はグラフデータセットのエッジ
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Dataset はノードとエッジの一覧
type Dataset struct {
	Nodes []Node
	Edges []Edge
}

package casegraph

import (
	"strings"
	"unicode/utf8"

	"github.com/jinford/case-rag/internal/core/legalcase"
)

// minItemLength より短い事実・争点はノードにしない
const minItemLength = 3

// BuildDataset は構造化ケースからノード・エッジの一覧を組み立てる
// ノードIDは最初の出現のみ採用し、エッジは (source, target, type) で重複を除く
func BuildDataset(cases []*legalcase.StructuredCase) *Dataset {
	b := &datasetBuilder{
		nodeIDs: make(map[string]struct{}),
		edgeIDs: make(map[Edge]struct{}),
	}

	for _, sc := range cases {
		b.addNode(Node{ID: sc.CaseID, Type: NodeTypeCase})
		for _, fact := range sc.Facts {
			b.addItem(sc.CaseID, "FACT_", NodeTypeFact, EdgeHasFact, fact)
		}
		for _, issue := range sc.Issues {
			b.addItem(sc.CaseID, "ISSUE_", NodeTypeIssue, EdgeHasIssue, issue)
		}
	}

	return &Dataset{Nodes: b.nodes, Edges: b.edges}
}

type datasetBuilder struct {
	nodes   []Node
	edges   []Edge
	nodeIDs map[string]struct{}
	edgeIDs map[Edge]struct{}
}

func (b *datasetBuilder) addItem(caseID, prefix, nodeType, edgeType, text string) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minItemLength {
		return
	}

	id := prefix + strings.ReplaceAll(text, " ", "_")
	b.addNode(Node{ID: id, Type: nodeType, Name: text})
	b.addEdge(Edge{Source: caseID, Target: id, Type: edgeType})
}

func (b *datasetBuilder) addNode(n Node) {
	if _, ok := b.nodeIDs[n.ID]; ok {
		return
	}
	b.nodeIDs[n.ID] = struct{}{}
	b.nodes = append(b.nodes, n)
}

func (b *datasetBuilder) addEdge(e Edge) {
	if _, ok := b.edgeIDs[e]; ok {
		return
	}
	b.edgeIDs[e] = struct{}{}
	b.edges = append(b.edges, e)
}

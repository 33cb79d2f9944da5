package filesystem

import (
	"context"
	"path/filepath"

	"github.com/jinford/case-rag/internal/core/casegraph"
)

// DatasetWriter はグラフデータセットを nodes.json / edges.json に書き出す
type DatasetWriter struct {
	dir string
}

// NewDatasetWriter は新しい DatasetWriter を作成する
func NewDatasetWriter(dir string) *DatasetWriter {
	return &DatasetWriter{dir: dir}
}

// WriteDataset はノードとエッジをインデント付きJSONで書き出す
func (w *DatasetWriter) WriteDataset(ctx context.Context, ds *casegraph.Dataset) error {
	nodes := ds.Nodes
	if nodes == nil {
		nodes = []casegraph.Node{}
	}
	edges := ds.Edges
	if edges == nil {
		edges = []casegraph.Edge{}
	}

	if err := writeJSON(filepath.Join(w.dir, "nodes.json"), nodes); err != nil {
		return err
	}
	return writeJSON(filepath.Join(w.dir, "edges.json"), edges)
}

var _ casegraph.DatasetWriter = (*DatasetWriter)(nil)

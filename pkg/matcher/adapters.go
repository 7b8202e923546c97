package matcher

import (
	"github.com/orneryd/trajmatch/pkg/clusterindex"
	"github.com/orneryd/trajmatch/pkg/graphindex"
)

// GraphVectorIndex adapts *graphindex.Graph to the matcher's VectorIndex
// capability interface.
type GraphVectorIndex struct {
	Graph *graphindex.Graph
}

// NewGraphVectorIndex wraps an existing graph index for attachment via
// SetIndices.
func NewGraphVectorIndex(g *graphindex.Graph) *GraphVectorIndex {
	return &GraphVectorIndex{Graph: g}
}

func (a *GraphVectorIndex) Insert(id string, v []float32) error {
	return a.Graph.Insert(id, v)
}

func (a *GraphVectorIndex) Search(q []float32, k int) ([]VectorResult, error) {
	results, err := a.Graph.Search(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]VectorResult, len(results))
	for i, r := range results {
		out[i] = VectorResult{ID: r.ID, Distance: r.Distance, Similarity: r.Similarity}
	}
	return out, nil
}

func (a *GraphVectorIndex) Size() int {
	return a.Graph.Size()
}

// ClusterVectorIndex adapts *clusterindex.ClusterIndex to the matcher's
// VectorIndex capability interface. Insert maps onto Add; the index
// must be Build() separately (typically by a host batch job) before
// searches stop falling back to exact scan — see spec.md §4.3.
type ClusterVectorIndex struct {
	Cluster *clusterindex.ClusterIndex
}

// NewClusterVectorIndex wraps an existing cluster index for attachment
// via SetIndices.
func NewClusterVectorIndex(c *clusterindex.ClusterIndex) *ClusterVectorIndex {
	return &ClusterVectorIndex{Cluster: c}
}

func (a *ClusterVectorIndex) Insert(id string, v []float32) error {
	return a.Cluster.Add(id, v)
}

func (a *ClusterVectorIndex) Search(q []float32, k int) ([]VectorResult, error) {
	results, err := a.Cluster.Search(q, k)
	if err != nil {
		return nil, err
	}
	out := make([]VectorResult, len(results))
	for i, r := range results {
		out[i] = VectorResult{ID: r.ID, Distance: r.Distance, Similarity: r.Similarity}
	}
	return out, nil
}

func (a *ClusterVectorIndex) Size() int {
	return a.Cluster.Size()
}

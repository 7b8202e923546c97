// Package graphindex implements a layered proximity graph (HNSW-style)
// supporting dynamic insertion and approximate k-nearest-neighbor search
// under cosine distance.
//
// The graph is a set of nodes connected by per-layer neighbor lists.
// Higher layers are sparser "highways" that let search descend quickly
// toward the query before doing a careful scan at layer 0. Every edge
// the index creates is bidirectional, and no node's per-layer neighbor
// list ever exceeds its layer cap once an insertion completes — callers
// can rely on both invariants holding after every Insert call returns.
//
// Example:
//
//	g := graphindex.New(384, graphindex.DefaultConfig())
//	g.Insert("doc1", embedding.Embed("hello world", 384))
//	g.Insert("doc2", embedding.Embed("goodbye world", 384))
//	results, _ := g.Search(embedding.Embed("hello there", 384), 1)
package graphindex

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"

	"github.com/orneryd/trajmatch/pkg/vector"
)

// Config holds tuning parameters for the graph index.
type Config struct {
	M              int // max connections per node per layer above 0 (default 16)
	EfConstruction int // candidate list size during construction (default 200)
	EfSearch       int // candidate list size during search (default 50)
	Seed           int64
}

// DefaultConfig returns the spec defaults: M=16, efConstruction=200,
// efSearch=50.
func DefaultConfig() Config {
	return Config{
		M:              16,
		EfConstruction: 200,
		EfSearch:       50,
		Seed:           0,
	}
}

// levelMultiplier is mL = 1/ln(M).
func (c Config) levelMultiplier() float64 {
	return 1.0 / math.Log(float64(c.M))
}

// Result is a single search hit.
type Result struct {
	ID         string
	Distance   float64
	Similarity float64
}

type node struct {
	id        string
	vec       []float32
	topLayer  int
	neighbors [][]string // neighbors[l] = neighbor ids at layer l
}

// Graph is a layered proximity graph index. It is not safe for
// concurrent writers; see the concurrency note on the matcher
// package's Matcher type for the single-writer/many-readers contract
// the whole engine follows.
type Graph struct {
	config     Config
	dim        int
	nodes      map[string]*node
	entryPoint string
	maxLayer   int
	rng        *rand.Rand
}

// New creates an empty graph index for vectors of the given dimension.
func New(dim int, config Config) *Graph {
	return &Graph{
		config: config,
		dim:    dim,
		nodes:  make(map[string]*node),
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Size returns the number of nodes in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Insert assigns a random top layer to id, connects it into the graph,
// and maintains the bidirectionality and degree-cap invariants. It
// fails with vector.ErrDimensionMismatch if v's length differs from the
// graph's configured dimension.
func (g *Graph) Insert(id string, v []float32) error {
	if len(v) != g.dim {
		return vector.ErrDimensionMismatch
	}

	level := g.randomLevel()
	n := &node{
		id:        id,
		vec:       v,
		topLayer:  level,
		neighbors: make([][]string, level+1),
	}
	for l := range n.neighbors {
		n.neighbors[l] = make([]string, 0, g.maxDegree(l))
	}
	g.nodes[id] = n

	if g.entryPoint == "" {
		g.entryPoint = id
		g.maxLayer = level
		return nil
	}

	ep := g.entryPoint
	epNode := g.nodes[ep]

	for l := epNode.topLayer; l > level; l-- {
		ep = g.greedyDescend(v, ep, l)
	}

	best := []string{ep}
	for l := min(level, epNode.topLayer); l >= 0; l-- {
		candidates := g.searchLayer(v, best, l, g.config.EfConstruction)
		neighbors := g.selectNeighbors(v, candidates, g.maxDegree(l))
		n.neighbors[l] = neighbors

		for _, nb := range neighbors {
			g.addEdge(nb, id, l)
		}

		best = candidates
	}

	if level > g.maxLayer {
		g.entryPoint = id
		g.maxLayer = level
	}

	return nil
}

// addEdge adds a bidirectional edge from nb to id at layer l (the
// id->nb side was already recorded by the caller) and prunes nb's
// layer-l list back down to its cap if it grows past it. Every edge
// pruned from nb's list is also removed from the other endpoint's
// list, so both sides stay in agreement.
func (g *Graph) addEdge(nb, id string, l int) {
	nbNode, ok := g.nodes[nb]
	if !ok || l > nbNode.topLayer {
		return
	}

	nbNode.neighbors[l] = append(nbNode.neighbors[l], id)

	cap := g.maxDegree(l)
	if len(nbNode.neighbors[l]) > cap {
		kept := g.selectNeighbors(nbNode.vec, nbNode.neighbors[l], cap)
		for _, dropped := range nbNode.neighbors[l] {
			if contains(kept, dropped) {
				continue
			}
			dNode := g.nodes[dropped]
			filtered := make([]string, 0, len(dNode.neighbors[l]))
			for _, x := range dNode.neighbors[l] {
				if x != nb {
					filtered = append(filtered, x)
				}
			}
			dNode.neighbors[l] = filtered
		}
		nbNode.neighbors[l] = kept
	}
}

// maxDegree returns M_0 = 2M at layer 0, M_l = M otherwise.
func (g *Graph) maxDegree(l int) int {
	if l == 0 {
		return 2 * g.config.M
	}
	return g.config.M
}

// selectNeighbors sorts candidates by distance ascending and keeps the
// first m — the simple greedy heuristic the spec permits in place of a
// stronger diversity-aware selection.
func (g *Graph) selectNeighbors(q []float32, candidates []string, m int) []string {
	type scored struct {
		id   string
		dist float64
	}
	scoredList := make([]scored, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		d, _ := vector.Distance(q, g.nodes[c].vec)
		scoredList = append(scoredList, scored{c, d})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].dist < scoredList[j].dist })

	if len(scoredList) > m {
		scoredList = scoredList[:m]
	}
	out := make([]string, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.id
	}
	return out
}

// greedyDescend performs a single-greedy-descend (ef=1) from entryID at
// layer l, following the locally closest neighbor until no neighbor is
// closer than the current node.
func (g *Graph) greedyDescend(q []float32, entryID string, l int) string {
	current := entryID
	currentDist, _ := vector.Distance(q, g.nodes[current].vec)

	for {
		changed := false
		for _, nb := range g.nodes[current].neighbors[l] {
			d, _ := vector.Distance(q, g.nodes[nb].vec)
			if d < currentDist {
				current = nb
				currentDist = d
				changed = true
			}
		}
		if !changed {
			return current
		}
	}
}

// searchLayer runs a best-first traversal of layer l starting from
// entries, maintaining a visited set, a min-heap frontier, and a
// bounded result set of size <= ef. It returns the result set ordered
// by distance ascending.
func (g *Graph) searchLayer(q []float32, entries []string, l int, ef int) []string {
	visited := make(map[string]bool)
	frontier := &distHeap{}
	results := &maxDistHeap{}

	for _, e := range entries {
		if visited[e] {
			continue
		}
		visited[e] = true
		d, _ := vector.Distance(q, g.nodes[e].vec)
		heap.Push(frontier, distItem{e, d})
		heap.Push(results, distItem{e, d})
		if results.Len() > ef {
			heap.Pop(results)
		}
	}

	for frontier.Len() > 0 {
		closest := heap.Pop(frontier).(distItem)

		if results.Len() >= ef {
			worst := (*results)[0]
			if closest.dist > worst.dist {
				break
			}
		}

		nodeRef, ok := g.nodes[closest.id]
		if !ok || l > nodeRef.topLayer {
			continue
		}

		for _, nb := range nodeRef.neighbors[l] {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			d, _ := vector.Distance(q, g.nodes[nb].vec)
			heap.Push(frontier, distItem{nb, d})
			heap.Push(results, distItem{nb, d})
			if results.Len() > ef {
				heap.Pop(results)
			}
		}
	}

	out := make([]string, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(distItem).id
	}
	return out
}

// Search returns the k nearest neighbors of q by cosine similarity. An
// empty graph returns an empty slice. A graph with a single node, or
// one with no entry point, is scanned exactly rather than via the
// layered traversal.
func (g *Graph) Search(q []float32, k int) ([]Result, error) {
	if len(q) != g.dim {
		return nil, vector.ErrDimensionMismatch
	}
	if len(g.nodes) == 0 {
		return []Result{}, nil
	}
	if len(g.nodes) == 1 || g.entryPoint == "" {
		return g.exactScan(q, k), nil
	}

	ep := g.entryPoint
	for l := g.maxLayer; l > 0; l-- {
		ep = g.greedyDescend(q, ep, l)
	}

	ef := g.config.EfSearch
	if k > ef {
		ef = k
	}
	candidates := g.searchLayer(q, []string{ep}, 0, ef)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		d, _ := vector.Distance(q, g.nodes[c].vec)
		results = append(results, Result{ID: c, Distance: d, Similarity: 1 - d})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (g *Graph) exactScan(q []float32, k int) []Result {
	results := make([]Result, 0, len(g.nodes))
	for id, n := range g.nodes {
		d, _ := vector.Distance(q, n.vec)
		results = append(results, Result{ID: id, Distance: d, Similarity: 1 - d})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (g *Graph) randomLevel() int {
	r := g.rng.Float64()
	if r == 0 {
		r = 1e-12
	}
	return int(-math.Log(r) * g.config.levelMultiplier())
}

// Stats reports basic structural metrics: node count, layer count
// (max layer + 1), and mean degree across all layers and nodes.
type Stats struct {
	Nodes      int
	Layers     int
	MeanDegree float64
}

// Stats computes index-wide statistics.
func (g *Graph) Stats() Stats {
	if len(g.nodes) == 0 {
		return Stats{}
	}

	var totalDegree, totalLists int
	maxLayer := 0
	for _, n := range g.nodes {
		if n.topLayer > maxLayer {
			maxLayer = n.topLayer
		}
		for _, layerNeighbors := range n.neighbors {
			totalDegree += len(layerNeighbors)
			totalLists++
		}
	}

	mean := 0.0
	if totalLists > 0 {
		mean = float64(totalDegree) / float64(totalLists)
	}

	return Stats{
		Nodes:      len(g.nodes),
		Layers:     maxLayer + 1,
		MeanDegree: mean,
	}
}

// VerifyInvariants checks the bidirectionality and degree-cap
// invariants described in the package doc comment. It is intended for
// tests, not production call sites.
func (g *Graph) VerifyInvariants() error {
	for id, n := range g.nodes {
		for l, neighbors := range n.neighbors {
			if len(neighbors) > g.maxDegree(l) {
				return &invariantError{id, l, "degree cap exceeded"}
			}
			for _, nb := range neighbors {
				nbNode, ok := g.nodes[nb]
				if !ok || l > nbNode.topLayer {
					return &invariantError{id, l, "neighbor missing or below layer"}
				}
				if !contains(nbNode.neighbors[l], id) {
					return &invariantError{id, l, "edge not bidirectional"}
				}
			}
		}
	}
	if g.entryPoint != "" {
		for id, n := range g.nodes {
			if n.topLayer > g.nodes[g.entryPoint].topLayer {
				return &invariantError{id, n.topLayer, "entry point is not the max-layer node"}
			}
		}
	}
	return nil
}

type invariantError struct {
	id     string
	layer  int
	reason string
}

func (e *invariantError) Error() string {
	return "graphindex: invariant violated for " + e.id + ": " + e.reason
}

func contains(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

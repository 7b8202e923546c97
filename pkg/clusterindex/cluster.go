// Package clusterindex implements a clustered inverted-file (IVF)
// vector index: k-means++ partitions inserted vectors into centroids,
// and search scans only the postings of the nearest few centroids
// instead of the whole corpus.
//
// Architecture:
//
//	ClusterIndex
//	    ├── centroids [][]float32   <- cluster centers (Euclidean space)
//	    ├── postings map[int][]string <- cluster ordinal -> member ids
//	    └── vectors map[string][]float32 <- id -> vector
//
// Build runs k-means++ initialization followed by Lloyd iterations until
// convergence or MaxIter is reached. Search ranks centroids by
// Euclidean distance to the query, then returns the closest members (by
// cosine distance) among the nearest NProbe centroids' postings.
package clusterindex

import (
	"errors"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/orneryd/trajmatch/pkg/vector"
)

// Config holds IVF tuning parameters.
type Config struct {
	NClusters int // K, clamped to min(NClusters, N) at build time (default 10)
	NProbe    int // number of nearest clusters to scan during search (default 10)
	MaxIter   int // max Lloyd iterations (default 20)
	Seed      int64
}

// DefaultConfig returns the spec defaults.
func DefaultConfig() Config {
	return Config{
		NClusters: 10,
		NProbe:    10,
		MaxIter:   20,
		Seed:      0,
	}
}

// moveTolerance is the centroid-movement convergence threshold (1e-4).
const moveTolerance = 1e-4

// Result is a single search hit.
type Result struct {
	ID         string
	Distance   float64
	Similarity float64
}

// ClusterIndex is a k-means-partitioned vector index. Not safe for
// concurrent writers.
type ClusterIndex struct {
	config    Config
	dim       int
	ids       []string // insertion order, for deterministic exact scans
	vectors   map[string][]float32
	centroids [][]float32
	postings  map[int][]string
	built     bool
	rng       *rand.Rand
}

// New creates an empty cluster index for vectors of the given
// dimension.
func New(dim int, config Config) *ClusterIndex {
	return &ClusterIndex{
		config:   config,
		dim:      dim,
		vectors:  make(map[string][]float32),
		postings: make(map[int][]string),
		rng:      rand.New(rand.NewSource(config.Seed)),
	}
}

// Add inserts or updates a vector. Adding after Build reverts the
// built flag to false; subsequent searches fall back to exact scan
// until the next Build (no incremental k-means).
func (c *ClusterIndex) Add(id string, v []float32) error {
	if len(v) != c.dim {
		return vector.ErrDimensionMismatch
	}
	if _, exists := c.vectors[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.vectors[id] = v
	c.built = false
	return nil
}

// Size returns the number of vectors held.
func (c *ClusterIndex) Size() int {
	return len(c.vectors)
}

// Built reports whether the index has a valid clustering.
func (c *ClusterIndex) Built() bool {
	return c.built
}

// Build runs k-means++ initialization and Lloyd iterations over the
// current vectors. Building an empty index is a no-op (observability
// warning only, no state mutation).
func (c *ClusterIndex) Build() {
	n := len(c.ids)
	if n == 0 {
		log.Printf("clusterindex: Build called on an empty index; nothing to do")
		return
	}

	k := c.config.NClusters
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	centroids := c.kmeansPlusPlusInit(k)

	maxIter := c.config.MaxIter
	if maxIter <= 0 {
		maxIter = 20
	}

	assignments := make(map[string]int, n)
	for iter := 0; iter < maxIter; iter++ {
		for _, id := range c.ids {
			assignments[id] = closestCentroid(c.vectors[id], centroids)
		}

		newCentroids := make([][]float32, k)
		counts := make([]int, k)
		sums := make([][]float64, k)
		for i := range sums {
			sums[i] = make([]float64, c.dim)
		}

		for _, id := range c.ids {
			cl := assignments[id]
			counts[cl]++
			v := c.vectors[id]
			for d := 0; d < c.dim; d++ {
				sums[cl][d] += float64(v[d])
			}
		}

		maxMove := 0.0
		for cl := 0; cl < k; cl++ {
			if counts[cl] == 0 {
				newCentroids[cl] = centroids[cl]
				continue
			}
			mean := make([]float32, c.dim)
			for d := 0; d < c.dim; d++ {
				mean[d] = float32(sums[cl][d] / float64(counts[cl]))
			}
			newCentroids[cl] = mean
			move := vector.EuclideanDistance(centroids[cl], mean)
			if move > maxMove {
				maxMove = move
			}
		}

		centroids = newCentroids
		if maxMove < moveTolerance {
			break
		}
	}

	postings := make(map[int][]string, k)
	for cl := 0; cl < k; cl++ {
		postings[cl] = []string{}
	}
	for _, id := range c.ids {
		cl := closestCentroid(c.vectors[id], centroids)
		postings[cl] = append(postings[cl], id)
	}

	c.centroids = centroids
	c.postings = postings
	c.built = true
}

// kmeansPlusPlusInit selects k initial centroids: the first uniformly
// at random, each subsequent one sampled with probability proportional
// to its squared Euclidean distance to the nearest chosen centroid.
func (c *ClusterIndex) kmeansPlusPlusInit(k int) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := c.ids[c.rng.Intn(len(c.ids))]
	centroids = append(centroids, cloneVec(c.vectors[first]))

	for len(centroids) < k {
		weights := make([]float64, len(c.ids))
		var total float64
		for i, id := range c.ids {
			d := nearestCentroidDistance(c.vectors[id], centroids)
			weights[i] = d * d
			total += weights[i]
		}

		if total == 0 {
			// All remaining points coincide with a chosen centroid;
			// fall back to uniform sampling to still reach k centroids.
			next := c.ids[c.rng.Intn(len(c.ids))]
			centroids = append(centroids, cloneVec(c.vectors[next]))
			continue
		}

		target := c.rng.Float64() * total
		var cum float64
		chosen := c.ids[len(c.ids)-1]
		for i, id := range c.ids {
			cum += weights[i]
			if cum >= target {
				chosen = id
				break
			}
		}
		centroids = append(centroids, cloneVec(c.vectors[chosen]))
	}

	return centroids
}

func nearestCentroidDistance(v []float32, centroids [][]float32) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		d := vector.EuclideanDistance(v, c)
		if d < best {
			best = d
		}
	}
	return best
}

func closestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		d := vector.EuclideanDistance(v, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Search returns the k closest vectors to q by cosine distance. If the
// index is not built or holds no vectors, it falls back to an exact
// linear scan. Otherwise it ranks centroids by Euclidean distance to q
// and scans the union of postings of the nearest NProbe centroids.
func (c *ClusterIndex) Search(q []float32, k int) ([]Result, error) {
	if len(q) != c.dim {
		return nil, vector.ErrDimensionMismatch
	}
	if len(c.vectors) == 0 {
		return []Result{}, nil
	}
	if !c.built {
		return c.exactScan(q, k), nil
	}

	type centroidDist struct {
		index int
		dist  float64
	}
	cds := make([]centroidDist, len(c.centroids))
	for i, cen := range c.centroids {
		cds[i] = centroidDist{i, vector.EuclideanDistance(q, cen)}
	}
	sort.Slice(cds, func(i, j int) bool { return cds[i].dist < cds[j].dist })

	nProbe := c.config.NProbe
	if nProbe <= 0 {
		nProbe = 10
	}
	if nProbe > len(cds) {
		nProbe = len(cds)
	}

	seen := make(map[string]bool)
	var candidates []string
	for i := 0; i < nProbe; i++ {
		for _, id := range c.postings[cds[i].index] {
			if !seen[id] {
				seen[id] = true
				candidates = append(candidates, id)
			}
		}
	}

	return c.rankByCosine(q, candidates, k), nil
}

func (c *ClusterIndex) exactScan(q []float32, k int) []Result {
	return c.rankByCosine(q, c.ids, k)
}

func (c *ClusterIndex) rankByCosine(q []float32, ids []string, k int) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		d, _ := vector.Distance(q, c.vectors[id])
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

// ErrNotBuilt is returned by operations that require a completed Build
// when no successful Build has run. Search degrades to exact scan
// instead of returning this error; it is exposed for callers that want
// to distinguish the two paths explicitly.
var ErrNotBuilt = errors.New("clusterindex: not built")

// VerifyInvariants checks that every vector belongs to exactly one
// posting and that centroid count equals posting-map size. Intended for
// tests.
func (c *ClusterIndex) VerifyInvariants() error {
	if !c.built {
		return nil
	}
	if len(c.centroids) != len(c.postings) {
		return errors.New("clusterindex: centroid count does not match posting count")
	}

	total := 0
	seen := make(map[string]bool, len(c.vectors))
	for _, members := range c.postings {
		for _, id := range members {
			if seen[id] {
				return errors.New("clusterindex: id appears in more than one posting")
			}
			seen[id] = true
			total++
		}
	}
	if total != len(c.vectors) {
		return errors.New("clusterindex: posting total does not match vector count")
	}
	return nil
}

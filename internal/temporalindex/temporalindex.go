// Package temporalindex is a minimal external collaborator that lets
// the matcher restrict candidates to a time range. It satisfies the
// temporal index contract from the matching engine's external
// interfaces: add(id, timestamp) and findInRange inclusive of both
// endpoints.
package temporalindex

import "sort"

// entry pairs a span id with the Unix timestamp it was recorded at.
type entry struct {
	id        string
	timestamp int64
}

// Index is an append-only timestamp index, sorted lazily on the first
// query after an Add and searched by binary search. The
// trajectory corpora this engine targets are small enough that a
// sorted slice plus binary search outperforms the bookkeeping of a
// tree structure.
type Index struct {
	entries []entry
	sorted  bool
}

// New creates an empty temporal index.
func New() *Index {
	return &Index{}
}

// Add records id as occurring at timestamp.
func (idx *Index) Add(id string, timestamp int64) {
	idx.entries = append(idx.entries, entry{id: id, timestamp: timestamp})
	idx.sorted = false
}

// FindInRange returns every id recorded with start <= timestamp <=
// end, inclusive of both endpoints.
func (idx *Index) FindInRange(start, end int64) []string {
	if !idx.sorted {
		sort.Slice(idx.entries, func(i, j int) bool {
			return idx.entries[i].timestamp < idx.entries[j].timestamp
		})
		idx.sorted = true
	}

	lo := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].timestamp >= start
	})

	var out []string
	for i := lo; i < len(idx.entries) && idx.entries[i].timestamp <= end; i++ {
		out = append(out, idx.entries[i].id)
	}
	return out
}

// Size returns the number of recorded entries.
func (idx *Index) Size() int {
	return len(idx.entries)
}

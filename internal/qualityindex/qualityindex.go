// Package qualityindex is a minimal external collaborator tracking a
// 0-100 quality score per span, so the matcher can restrict
// candidates to those above a quality threshold.
package qualityindex

// Index maps span ids to quality scores.
type Index struct {
	scores map[string]int
}

// New creates an empty quality index.
func New() *Index {
	return &Index{scores: make(map[string]int)}
}

// Add records score for id, overwriting any prior value.
func (idx *Index) Add(id string, score int) {
	idx.scores[id] = score
}

// FindAbove returns every id whose recorded score is >= threshold.
func (idx *Index) FindAbove(threshold int) []string {
	var out []string
	for id, score := range idx.scores {
		if score >= threshold {
			out = append(out, id)
		}
	}
	return out
}

// Size returns the number of recorded entries.
func (idx *Index) Size() int {
	return len(idx.scores)
}

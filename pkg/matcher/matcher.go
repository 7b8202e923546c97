// Package matcher orchestrates a trajectory-matching prediction: embed
// the query, ask an attached vector index for approximate neighbors,
// narrow the candidate set through an inverted filter and optional
// temporal/quality collaborators, score the survivors by cosine
// similarity to the query embedding, synthesize an output string, and
// assign a confidence score derived from the evidence scores.
//
// The Matcher itself owns nothing but the span store and its
// configuration; every index is injected through SetIndices as a small
// capability interface, so the orchestration logic stays parametric
// over which concrete graph, cluster, temporal, or quality
// implementation is plugged in, the same pattern a search service uses
// for its vector and fulltext indices.
package matcher

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/orneryd/trajmatch/pkg/embedding"
	"github.com/orneryd/trajmatch/pkg/span"
)

// Method names a prediction's provenance.
type Method string

const (
	MethodTrajectoryMatching Method = "trajectory_matching"
	MethodSynthesis          Method = "synthesis"
	MethodFallback           Method = "fallback"
	MethodLowConfidence      Method = "low_confidence"
)

// VectorResult is a single approximate-nearest-neighbor hit, shaped the
// same way across every vector index implementation (graph or
// cluster).
type VectorResult struct {
	ID         string
	Distance   float64
	Similarity float64
}

// VectorIndex is the capability a graph or cluster index exposes to
// the matcher. Both pkg/graphindex.Graph and pkg/clusterindex.ClusterIndex
// satisfy it through the adapters in this package.
type VectorIndex interface {
	Insert(id string, v []float32) error
	Search(q []float32, k int) ([]VectorResult, error)
	Size() int
}

// InvertedFilter is the capability pkg/invertedfilter.Filter exposes to
// the matcher.
type InvertedFilter interface {
	Add(id, field, value string)
	FilterByAction(seed []string, action string, fuzzy bool) []string
}

// TemporalIndex is the capability internal/temporalindex.Index exposes
// to the matcher.
type TemporalIndex interface {
	Add(id string, timestamp int64)
	FindInRange(start, end int64) []string
}

// QualityIndex is the capability internal/qualityindex.Index exposes to
// the matcher.
type QualityIndex interface {
	Add(id string, score int)
	FindAbove(threshold int) []string
}

// TimeRange is an inclusive [Start, End] window in the same units as
// span metadata timestamps.
type TimeRange struct {
	Start int64
	End   int64
}

// SearchPlan controls a single predict call: how many candidates to
// retrieve and synthesize from, and which optional collaborator
// narrowing to apply.
type SearchPlan struct {
	TopK       int
	MinQuality int
	TimeRange  *TimeRange
	Filters    map[string]string
}

// Evidence is a single scored span surfaced alongside a prediction for
// explainability.
type Evidence struct {
	ID       string
	Score    float64
	Content  string
	Metadata span.Metadata
}

// Prediction is the Matcher's output: a synthesized answer, a
// confidence score, and (outside short-circuits A, B and C) the
// evidence trail that produced it.
type Prediction struct {
	Output           string
	Confidence       float64
	TrajectoriesUsed int
	Method           Method
	Evidence         []Evidence
	Plan             *SearchPlan
}

// Context is the situational frame a query is asked within.
type Context struct {
	Environment     string
	Stakes          string
	PreviousActions []string
}

// Config holds the Matcher's own tuning knobs.
type Config struct {
	MinTopK       int
	MinScore      float64
	MinConfidence float64
	EmbeddingDim  int
	DefaultTopK   int
}

// DefaultConfig returns the conservative defaults: minTopK=3,
// minScore=0.3, minConfidence=20, embeddingDim=384, defaultTopK=10.
func DefaultConfig() Config {
	return Config{
		MinTopK:       3,
		MinScore:      0.3,
		MinConfidence: 20,
		EmbeddingDim:  384,
		DefaultTopK:   10,
	}
}

// Matcher orchestrates prediction over an owned span store and a set
// of non-owning index references. It is not safe for concurrent
// writers: one writer at a time, any number of concurrent readers
// while no writer is active.
type Matcher struct {
	config Config

	mu       sync.RWMutex
	spans    map[string]span.Span
	vector   VectorIndex
	inverted InvertedFilter
	temporal TemporalIndex
	quality  QualityIndex
}

// New creates a Matcher with an empty span store and no attached
// indices.
func New(config Config) *Matcher {
	return &Matcher{
		config: config,
		spans:  make(map[string]span.Span),
	}
}

// Indices bundles the optional collaborators SetIndices attaches. A nil
// field leaves that collaborator unattached.
type Indices struct {
	Vector   VectorIndex
	Inverted InvertedFilter
	Temporal TemporalIndex
	Quality  QualityIndex
}

// SetIndices attaches (or replaces) the Matcher's collaborator
// references. The Matcher does not own any of them.
func (m *Matcher) SetIndices(idx Indices) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vector = idx.Vector
	m.inverted = idx.Inverted
	m.temporal = idx.Temporal
	m.quality = idx.Quality
}

// AddSpan inserts span into the store and propagates it to every
// attached collaborator: the vector index (embedding of spanText), the
// inverted filter (action and domain postings), the temporal index
// when the span has a non-zero timestamp, and the quality index
// unconditionally.
func (m *Matcher) AddSpan(s span.Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.spans[s.ID] = s

	if m.vector != nil {
		v := embedding.Embed(spanText(s), m.config.EmbeddingDim)
		if err := m.vector.Insert(s.ID, v); err != nil {
			return err
		}
	}

	if m.inverted != nil {
		if s.Action != "" {
			m.inverted.Add(s.ID, "action", s.Action)
		}
		if s.Context.Environment != "" {
			m.inverted.Add(s.ID, "domain", s.Context.Environment)
		}
	}

	if m.temporal != nil && s.Metadata.Timestamp != 0 {
		m.temporal.Add(s.ID, s.Metadata.Timestamp)
	}
	if m.quality != nil {
		m.quality.Add(s.ID, s.Metadata.Quality)
	}

	return nil
}

// spanText concatenates actor, action, object, success-outcome, and
// context environment (each omitted if absent) — the canonical text the
// embedder derives from a span.
func spanText(s span.Span) string {
	return s.Text()
}

// Predict answers a (context, action) query. plan may be nil, in which
// case {TopK: DefaultTopK, MinQuality: 60} is used.
func (m *Matcher) Predict(ctx Context, action string, plan *SearchPlan) Prediction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resolvedPlan := resolvePlan(plan, m.config.DefaultTopK)

	// Short-circuit A: topK below the floor never synthesizes.
	if resolvedPlan.TopK < m.config.MinTopK {
		return Prediction{
			Method:           MethodLowConfidence,
			Confidence:       10,
			TrajectoriesUsed: 0,
			Plan:             &resolvedPlan,
		}
	}

	queryText := buildQueryText(ctx, action)
	q := embedding.Embed(queryText, m.config.EmbeddingDim)

	candidates := m.gatherCandidates(q, resolvedPlan)

	if m.inverted != nil {
		candidates = m.inverted.FilterByAction(candidates, action, true)
	}
	if m.temporal != nil && resolvedPlan.TimeRange != nil {
		inRange := m.temporal.FindInRange(resolvedPlan.TimeRange.Start, resolvedPlan.TimeRange.End)
		candidates = intersectOrdered(candidates, inRange)
	}
	if m.quality != nil {
		above := m.quality.FindAbove(resolvedPlan.MinQuality)
		candidates = intersectOrdered(candidates, above)
	}

	// Short-circuit B: nothing survived filtering.
	if len(candidates) == 0 {
		return Prediction{
			Method:           MethodLowConfidence,
			Confidence:       5,
			TrajectoriesUsed: 0,
			Plan:             &resolvedPlan,
		}
	}

	if len(candidates) > resolvedPlan.TopK {
		candidates = candidates[:resolvedPlan.TopK]
	}

	evidence := m.assembleEvidence(q, candidates)

	// Short-circuit C: every candidate scored below minScore or referenced
	// a span missing from the store.
	if len(evidence) == 0 {
		return Prediction{
			Method:           MethodLowConfidence,
			Confidence:       15,
			TrajectoriesUsed: 0,
			Plan:             &resolvedPlan,
		}
	}

	sort.SliceStable(evidence, func(i, j int) bool { return evidence[i].Score > evidence[j].Score })

	output := synthesize(evidence)
	confidence := scoreConfidence(evidence)

	prediction := Prediction{
		Output:           output,
		Confidence:       confidence,
		TrajectoriesUsed: len(evidence),
		Method:           MethodTrajectoryMatching,
		Evidence:         evidence,
		Plan:             &resolvedPlan,
	}

	// Short-circuit D: low confidence still carries evidence, but the
	// output is prefixed and the method downgraded.
	if confidence < m.config.MinConfidence {
		prediction.Method = MethodLowConfidence
		prediction.Output = lowConfidencePrefix(confidence) + output
	}

	return prediction
}

// resolvePlan returns {TopK: defaultTopK, MinQuality: 60} for a nil
// plan; for a non-nil plan it only replaces a zero TopK with
// defaultTopK.
func resolvePlan(plan *SearchPlan, defaultTopK int) SearchPlan {
	if plan == nil {
		return SearchPlan{TopK: defaultTopK, MinQuality: 60}
	}
	resolved := *plan
	if resolved.TopK == 0 {
		resolved.TopK = defaultTopK
	}
	return resolved
}

// buildQueryText joins action, context environment, context stakes, and
// joined previous actions (each omitted if absent) with single spaces.
func buildQueryText(ctx Context, action string) string {
	parts := []string{action}
	if ctx.Environment != "" {
		parts = append(parts, ctx.Environment)
	}
	if ctx.Stakes != "" {
		parts = append(parts, ctx.Stakes)
	}
	if len(ctx.PreviousActions) > 0 {
		parts = append(parts, strings.Join(ctx.PreviousActions, " "))
	}
	return strings.Join(parts, " ")
}

// gatherCandidates asks the vector index for 3*topK nearest neighbors
// if one is attached and non-empty; otherwise every span id is a
// candidate.
func (m *Matcher) gatherCandidates(q []float32, plan SearchPlan) []string {
	if m.vector != nil && m.vector.Size() > 0 {
		results, err := m.vector.Search(q, 3*plan.TopK)
		if err != nil {
			return []string{}
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		return ids
	}

	ids := make([]string, 0, len(m.spans))
	for id := range m.spans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// assembleEvidence recomputes cosine similarity between q and each
// candidate's span embedding, dropping candidates below minScore and
// those whose span id is missing from the store (tolerated as stale
// collaborator state rather than treated as an error).
func (m *Matcher) assembleEvidence(q []float32, candidates []string) []Evidence {
	evidence := make([]Evidence, 0, len(candidates))
	for _, id := range candidates {
		s, ok := m.spans[id]
		if !ok {
			continue
		}
		v := embedding.Embed(spanText(s), m.config.EmbeddingDim)
		score, err := embedding.Cosine(q, v)
		if err != nil || score < m.config.MinScore {
			continue
		}
		evidence = append(evidence, Evidence{
			ID:       id,
			Score:    score,
			Content:  s.Content(),
			Metadata: s.Metadata,
		})
	}
	return evidence
}

// synthesize combines ranked evidence (score descending) into a single
// output string: the top hit verbatim above 0.8 similarity; otherwise,
// with at least 3 items, the mode of the first five contents (ties
// broken by first-seen); otherwise the top hit verbatim.
func synthesize(evidence []Evidence) string {
	top := evidence[0]
	if top.Score > 0.8 {
		return top.Content
	}
	if len(evidence) >= 3 {
		window := evidence
		if len(window) > 5 {
			window = window[:5]
		}
		return modeContent(window)
	}
	return top.Content
}

// modeContent returns the most frequent Content among evidence, with
// ties broken by first occurrence.
func modeContent(evidence []Evidence) string {
	counts := make(map[string]int, len(evidence))
	order := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if counts[e.Content] == 0 {
			order = append(order, e.Content)
		}
		counts[e.Content]++
	}

	best := order[0]
	bestCount := counts[best]
	for _, content := range order[1:] {
		if counts[content] > bestCount {
			best = content
			bestCount = counts[content]
		}
	}
	return best
}

// scoreConfidence blends average score, evidence-count saturation, and
// score-variance decay into a single figure clamped to [0, 100].
func scoreConfidence(evidence []Evidence) float64 {
	scores := make([]float64, len(evidence))
	sum := 0.0
	for i, e := range evidence {
		scores[i] = e.Score
		sum += e.Score
	}
	avg := sum / float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		d := s - avg
		variance += d * d
	}
	variance /= float64(len(scores))

	countTerm := math.Min(float64(len(evidence))/5.0, 1.0)
	varianceTerm := math.Exp(-5 * variance)

	raw := 100 * (0.6*avg + 0.2*countTerm + 0.2*varianceTerm)
	return clamp(raw, 0, 100)
}

// intersectOrdered returns the set intersection of a and b, preserving
// the order of the shorter operand — matching pkg/invertedfilter's
// intersection convention so candidate ordering stays consistent across
// every narrowing step.
func intersectOrdered(a, b []string) []string {
	if len(b) < len(a) {
		a, b = b, a
	}
	bSet := make(map[string]bool, len(b))
	for _, id := range b {
		bSet[id] = true
	}
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a))
	for _, id := range a {
		if bSet[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lowConfidencePrefix(confidence float64) string {
	return "Low confidence (" + formatPercent(confidence) + "%) "
}

// formatPercent renders confidence to at most one decimal place,
// trimming a trailing ".0".
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	s = strings.TrimSuffix(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

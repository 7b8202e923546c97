package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/trajmatch/pkg/graphindex"
	"github.com/orneryd/trajmatch/pkg/invertedfilter"
	"github.com/orneryd/trajmatch/pkg/span"
)

func capitalSpans() []span.Span {
	return []span.Span{
		{
			ID:             "s1",
			Actor:          "agent",
			Action:         "What is the capital of France?",
			Object:         "France",
			SuccessOutcome: "The capital of France is Paris.",
			Context:        span.Context{Environment: "geography"},
			Metadata:       span.Metadata{Quality: 85},
		},
		{
			ID:             "s2",
			Actor:          "agent",
			Action:         "What is the capital of Germany?",
			Object:         "Germany",
			SuccessOutcome: "The capital of Germany is Berlin.",
			Context:        span.Context{Environment: "geography"},
			Metadata:       span.Metadata{Quality: 90},
		},
	}
}

func newGeographyMatcher(t *testing.T) *Matcher {
	t.Helper()
	m := New(DefaultConfig())
	g := graphindex.New(DefaultConfig().EmbeddingDim, graphindex.DefaultConfig())
	f := invertedfilter.New()
	m.SetIndices(Indices{
		Vector:   NewGraphVectorIndex(g),
		Inverted: f,
	})
	for _, s := range capitalSpans() {
		require.NoError(t, m.AddSpan(s))
	}
	return m
}

// TestPredictHappyPath confirms a predict call over a small geography
// corpus returns ranked, non-empty evidence and a populated answer.
func TestPredictHappyPath(t *testing.T) {
	m := newGeographyMatcher(t)

	pred := m.Predict(
		Context{Environment: "geography"},
		"What is the capital of Spain?",
		&SearchPlan{TopK: 5, MinQuality: 60},
	)

	assert.GreaterOrEqual(t, pred.TrajectoriesUsed, 1)
	assert.Contains(t, []Method{MethodTrajectoryMatching, MethodLowConfidence}, pred.Method)
	assert.Greater(t, pred.Confidence, 0.0)
	require.NotEmpty(t, pred.Evidence)

	for i := 1; i < len(pred.Evidence); i++ {
		assert.GreaterOrEqual(t, pred.Evidence[i-1].Score, pred.Evidence[i].Score)
	}
}

// TestPredictShortCircuitTopK confirms a plan requesting fewer than
// the minimum topK still returns the short-circuit low-confidence
// response rather than an error.
func TestPredictShortCircuitTopK(t *testing.T) {
	m := newGeographyMatcher(t)

	pred := m.Predict(
		Context{Environment: "geography"},
		"What is the capital of Spain?",
		&SearchPlan{TopK: 1, MinQuality: 60},
	)

	assert.Equal(t, MethodLowConfidence, pred.Method)
	assert.Equal(t, 10.0, pred.Confidence)
	assert.Equal(t, 0, pred.TrajectoriesUsed)
}

func TestPredictEmptyCorpusShortCircuitsB(t *testing.T) {
	m := New(DefaultConfig())
	g := graphindex.New(DefaultConfig().EmbeddingDim, graphindex.DefaultConfig())
	f := invertedfilter.New()
	m.SetIndices(Indices{Vector: NewGraphVectorIndex(g), Inverted: f})

	pred := m.Predict(Context{Environment: "geography"}, "anything", nil)
	assert.Equal(t, MethodLowConfidence, pred.Method)
	assert.Equal(t, 5.0, pred.Confidence)
	assert.Equal(t, 0, pred.TrajectoriesUsed)
}

func TestPredictDeterministic(t *testing.T) {
	m := newGeographyMatcher(t)
	plan := &SearchPlan{TopK: 5, MinQuality: 60}

	first := m.Predict(Context{Environment: "geography"}, "What is the capital of Spain?", plan)
	second := m.Predict(Context{Environment: "geography"}, "What is the capital of Spain?", plan)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.TrajectoriesUsed, second.TrajectoriesUsed)
}

func TestAddSpanMissingVectorIndexStillFilters(t *testing.T) {
	m := New(DefaultConfig())
	f := invertedfilter.New()
	m.SetIndices(Indices{Inverted: f})

	for _, s := range capitalSpans() {
		require.NoError(t, m.AddSpan(s))
	}

	pred := m.Predict(Context{Environment: "geography"}, "What is the capital of France?", &SearchPlan{TopK: 5, MinQuality: 60})
	assert.GreaterOrEqual(t, pred.TrajectoriesUsed, 0)
}

func TestPredictMissingSpanIsSkippedSilently(t *testing.T) {
	m := New(DefaultConfig())
	g := graphindex.New(DefaultConfig().EmbeddingDim, graphindex.DefaultConfig())
	f := invertedfilter.New()
	m.SetIndices(Indices{Vector: NewGraphVectorIndex(g), Inverted: f})

	s := capitalSpans()[0]
	require.NoError(t, m.AddSpan(s))

	// Simulate a stale external-collaborator id: present in the vector
	// index's graph (via AddSpan) but absent from the span store.
	m.mu.Lock()
	delete(m.spans, s.ID)
	m.mu.Unlock()

	pred := m.Predict(Context{Environment: "geography"}, "What is the capital of France?", &SearchPlan{TopK: 5, MinQuality: 60})
	assert.Equal(t, MethodLowConfidence, pred.Method)
	assert.Equal(t, 0, pred.TrajectoriesUsed)
}

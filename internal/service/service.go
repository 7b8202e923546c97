// Package service wires the trajectory-matching core (pkg/matcher and
// its indices) together with its external collaborators — cache,
// ledger, metrics, fallback, and experimentation — into the single
// object cmd/trajmatchd and cmd/trajmatch depend on. None of this
// wiring is part of the core's specification; it exists at the
// boundary spec.md §6 calls out as "outside the core".
package service

import (
	"context"
	"log"

	"github.com/orneryd/trajmatch/internal/config"
	"github.com/orneryd/trajmatch/internal/experiment"
	"github.com/orneryd/trajmatch/internal/fallback"
	"github.com/orneryd/trajmatch/internal/ledger"
	"github.com/orneryd/trajmatch/internal/metrics"
	"github.com/orneryd/trajmatch/internal/predictioncache"
	"github.com/orneryd/trajmatch/internal/qualityindex"
	"github.com/orneryd/trajmatch/internal/temporalindex"
	"github.com/orneryd/trajmatch/pkg/clusterindex"
	"github.com/orneryd/trajmatch/pkg/graphindex"
	"github.com/orneryd/trajmatch/pkg/invertedfilter"
	"github.com/orneryd/trajmatch/pkg/matcher"
	"github.com/orneryd/trajmatch/pkg/span"
)

// variantGraphFirst and variantClusterFirst name the two candidate-
// sourcing strategies the bandit experiments over: which ANN index
// backs the Matcher's attached VectorIndex.
const (
	variantGraphFirst   = "graph-first"
	variantClusterFirst = "cluster-first"
)

// Service bundles a Matcher with every collaborator spec.md §6
// describes at its interface boundary: a prediction cache, an
// auditable ledger, in-process metrics, an LLM fallback, and an
// epsilon-greedy bandit choosing between the graph and cluster ANN
// indices.
type Service struct {
	cfg *config.Config

	graph    *graphindex.Graph
	cluster  *clusterindex.ClusterIndex
	filter   *invertedfilter.Filter
	temporal *temporalindex.Index
	quality  *qualityindex.Index

	graphMatcher   *matcher.Matcher
	clusterMatcher *matcher.Matcher

	bandit   *experiment.Bandit
	cache    *predictioncache.Cache
	ledger   *ledger.Ledger
	metrics  *metrics.Recorder
	fallback fallback.Fallback
}

// New builds a Service from cfg. It opens the ledger file and, if
// configured, the cache's durable tier; callers should Close the
// Service when done.
func New(cfg *config.Config) (*Service, error) {
	graphCfg := graphindex.Config{
		M:              cfg.GraphIndex.M,
		EfConstruction: cfg.GraphIndex.EfConstruction,
		EfSearch:       cfg.GraphIndex.EfSearch,
	}
	clusterCfg := clusterindex.Config{
		NClusters: cfg.Cluster.NClusters,
		NProbe:    cfg.Cluster.NProbe,
		MaxIter:   cfg.Cluster.MaxIter,
	}
	matcherCfg := matcher.Config{
		MinTopK:       cfg.Matcher.MinTopK,
		MinScore:      cfg.Matcher.MinScore,
		MinConfidence: cfg.Matcher.MinConfidence,
		EmbeddingDim:  cfg.Matcher.EmbeddingDim,
		DefaultTopK:   cfg.Matcher.DefaultTopK,
	}

	graph := graphindex.New(cfg.Matcher.EmbeddingDim, graphCfg)
	cluster := clusterindex.New(cfg.Matcher.EmbeddingDim, clusterCfg)
	filter := invertedfilter.New()
	temporal := temporalindex.New()
	quality := qualityindex.New()

	graphMatcher := matcher.New(matcherCfg)
	graphMatcher.SetIndices(matcher.Indices{
		Vector:   matcher.NewGraphVectorIndex(graph),
		Inverted: filter,
		Temporal: temporal,
		Quality:  quality,
	})

	clusterMatcher := matcher.New(matcherCfg)
	clusterMatcher.SetIndices(matcher.Indices{
		Vector:   matcher.NewClusterVectorIndex(cluster),
		Inverted: filter,
		Temporal: temporal,
		Quality:  quality,
	})

	cache, err := predictioncache.New(predictioncache.Config{
		MaxSize:     cfg.Cache.MaxSize,
		TTL:         cfg.Cache.TTL,
		DurablePath: cfg.Cache.DurablePath,
	})
	if err != nil {
		return nil, err
	}

	l, err := ledger.Open(cfg.Ledger.Path, cfg.Ledger.SecretKey)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:            cfg,
		graph:          graph,
		cluster:        cluster,
		filter:         filter,
		temporal:       temporal,
		quality:        quality,
		graphMatcher:   graphMatcher,
		clusterMatcher: clusterMatcher,
		bandit:         experiment.New([]string{variantGraphFirst, variantClusterFirst}, 0.1, 0),
		cache:          cache,
		ledger:         l,
		metrics:        metrics.NewRecorder(),
		fallback:       fallback.NewStub(),
	}, nil
}

// AddSpan inserts a span into both matchers (so the bandit can route
// between them), appends a ledger record, and ties the cluster index's
// built flag into the "mutation after build" rule from spec.md §4.3 by
// leaving rebuilding to the host's batch job rather than every insert.
func (s *Service) AddSpan(sp span.Span) error {
	if err := s.graphMatcher.AddSpan(sp); err != nil {
		return err
	}
	if err := s.clusterMatcher.AddSpan(sp); err != nil {
		return err
	}
	return s.ledger.Append("add_span", sp)
}

// RebuildClusters runs k-means over every vector added so far. Call
// after a seeding batch; cheap, explicit, and never automatic, per
// spec.md §4.3's "rebuilds are full" rule.
func (s *Service) RebuildClusters() {
	s.cluster.Build()
}

// Predict answers a query, routing between the graph-first and
// cluster-first matchers via the bandit, consulting the prediction
// cache first, and falling back to the external-LLM collaborator when
// the result is low_confidence. A cache hit is counted as a cache hit
// and returned as is; every other call is recorded to the ledger and
// counted as a prediction in metrics.
func (s *Service) Predict(ctx context.Context, mctx matcher.Context, action string, plan *matcher.SearchPlan) matcher.Prediction {
	resolved := plan
	if resolved == nil {
		resolved = &matcher.SearchPlan{TopK: s.cfg.Matcher.DefaultTopK, MinQuality: 60}
	}

	key := predictioncache.Key{
		Environment:     mctx.Environment,
		Stakes:          mctx.Stakes,
		PreviousActions: mctx.PreviousActions,
		Action:          action,
		TopK:            resolved.TopK,
		MinQuality:      resolved.MinQuality,
	}

	var cached matcher.Prediction
	if s.cache.Get(key, &cached) {
		s.metrics.RecordCacheHit()
		return cached
	}
	s.metrics.RecordCacheMiss()

	variant := s.bandit.Select()
	m := s.graphMatcher
	if variant == variantClusterFirst {
		m = s.clusterMatcher
	}

	prediction := m.Predict(mctx, action, plan)
	s.bandit.Record(variant, prediction.Confidence/100)

	if prediction.Method == matcher.MethodLowConfidence && s.fallback != nil {
		if answer, err := s.fallback.Answer(ctx, mctx, action); err == nil {
			prediction.Output = answer
			prediction.Method = matcher.MethodFallback
			s.metrics.RecordFallback()
		}
	}

	s.metrics.RecordPrediction(prediction.Method == matcher.MethodLowConfidence)

	if err := s.cache.Put(key, prediction); err != nil {
		log.Printf("trajmatch: cache put failed: %v", err)
	}
	if err := s.ledger.Append("predict", prediction); err != nil {
		log.Printf("trajmatch: ledger append failed: %v", err)
	}

	return prediction
}

// Metrics returns a point-in-time snapshot of the service's counters.
func (s *Service) Metrics() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// Close releases the ledger file and the cache's durable tier.
func (s *Service) Close() error {
	if err := s.cache.Close(); err != nil {
		return err
	}
	return s.ledger.Close()
}

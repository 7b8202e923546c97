// Package metrics provides in-process counters for the prediction
// pipeline: total predictions, short-circuit outcomes, and cache
// hit/miss rates. No exporter is wired here; a host embedding
// trajmatch is expected to scrape these via its own observability
// stack.
//
// The example corpus retrieved for this build carries no metrics
// client library (no Prometheus, OpenTelemetry, or StatsD dependency
// appears anywhere in it), so this package is intentionally
// stdlib-only: sync/atomic counters, following the same pattern the
// teacher's query cache uses for its hit/miss counters.
package metrics

import "sync/atomic"

// Recorder accumulates counts for a single trajmatch instance.
type Recorder struct {
	predictions   uint64
	lowConfidence uint64
	cacheHits     uint64
	cacheMisses   uint64
	fallbackCalls uint64
}

// NewRecorder creates a zeroed Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordPrediction increments the total prediction count, and the
// low-confidence count when lowConfidence is true.
func (r *Recorder) RecordPrediction(lowConfidence bool) {
	atomic.AddUint64(&r.predictions, 1)
	if lowConfidence {
		atomic.AddUint64(&r.lowConfidence, 1)
	}
}

// RecordCacheHit increments the cache-hit count.
func (r *Recorder) RecordCacheHit() {
	atomic.AddUint64(&r.cacheHits, 1)
}

// RecordCacheMiss increments the cache-miss count.
func (r *Recorder) RecordCacheMiss() {
	atomic.AddUint64(&r.cacheMisses, 1)
}

// RecordFallback increments the fallback-invocation count.
func (r *Recorder) RecordFallback() {
	atomic.AddUint64(&r.fallbackCalls, 1)
}

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	Predictions   uint64
	LowConfidence uint64
	CacheHits     uint64
	CacheMisses   uint64
	FallbackCalls uint64
}

// Snapshot reads every counter. Each load is atomic on its own, but the
// counters are not read as one unit; callers wanting a single
// consistent instant should pause concurrent writers.
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		Predictions:   atomic.LoadUint64(&r.predictions),
		LowConfidence: atomic.LoadUint64(&r.lowConfidence),
		CacheHits:     atomic.LoadUint64(&r.cacheHits),
		CacheMisses:   atomic.LoadUint64(&r.cacheMisses),
		FallbackCalls: atomic.LoadUint64(&r.fallbackCalls),
	}
}

// CacheHitRate returns hits / (hits + misses) as a percentage, or 0
// when no cache lookups have occurred.
func (s Snapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100
}

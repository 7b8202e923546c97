package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/orneryd/trajmatch/internal/config"
	"github.com/orneryd/trajmatch/pkg/matcher"
	"github.com/orneryd/trajmatch/pkg/span"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Load()
	cfg.Ledger.Path = filepath.Join(dir, "ledger.ndjson")
	cfg.Ledger.SecretKey = ""
	cfg.Cache.DurablePath = ""
	return cfg
}

func TestServicePredictRoutesAndCaches(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	spans := []span.Span{
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
	for _, s := range spans {
		if err := svc.AddSpan(s); err != nil {
			t.Fatalf("AddSpan: %v", err)
		}
	}

	ctx := context.Background()
	mctx := matcher.Context{Environment: "geography"}
	plan := &matcher.SearchPlan{TopK: 5, MinQuality: 60}

	first := svc.Predict(ctx, mctx, "What is the capital of Spain?", plan)
	second := svc.Predict(ctx, mctx, "What is the capital of Spain?", plan)

	if first.Output != second.Output {
		t.Fatalf("expected cached prediction to match: %q vs %q", first.Output, second.Output)
	}

	snap := svc.Metrics()
	if snap.CacheHits == 0 {
		t.Fatal("expected at least one cache hit on the repeated query")
	}
}

func TestServiceLowConfidenceRoutesToFallback(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	pred := svc.Predict(context.Background(), matcher.Context{Environment: "geography"}, "anything", nil)
	if pred.Method != matcher.MethodFallback {
		t.Fatalf("expected empty-corpus prediction to fall back, got method=%q", pred.Method)
	}
}

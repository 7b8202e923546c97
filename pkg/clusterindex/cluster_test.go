package clusterindex

import (
	"fmt"
	"testing"

	"github.com/orneryd/trajmatch/pkg/embedding"
)

func TestClusterTinyScenario(t *testing.T) {
	dim := 64
	config := Config{NClusters: 2, NProbe: 1, MaxIter: 20, Seed: 1}
	idx := New(dim, config)

	helloWorld := embedding.Embed("Hello world", dim)
	helloThere := embedding.Embed("Hello there", dim)
	goodbyeWorld := embedding.Embed("Goodbye world", dim)

	_ = idx.Add("doc1", helloWorld)
	_ = idx.Add("doc2", helloThere)
	_ = idx.Add("doc3", goodbyeWorld)

	idx.Build()
	if !idx.Built() {
		t.Fatal("expected index to be built")
	}

	results, err := idx.Search(helloWorld, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected non-empty results")
	}

	found := false
	for _, r := range results {
		if r.ID == "doc1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected doc1 among results, got %+v", results)
	}
}

func TestClusterEmptyBuildIsNoop(t *testing.T) {
	idx := New(8, DefaultConfig())
	idx.Build()
	if idx.Built() {
		t.Error("expected built=false after building empty index")
	}
}

func TestClusterSearchEmptyIndex(t *testing.T) {
	idx := New(8, DefaultConfig())
	results, err := idx.Search(make([]float32, 8), 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %v", results)
	}
}

func TestClusterAddAfterBuildRevertsBuilt(t *testing.T) {
	dim := 16
	idx := New(dim, Config{NClusters: 2, NProbe: 1, MaxIter: 10, Seed: 2})
	for i := 0; i < 10; i++ {
		_ = idx.Add(fmt.Sprintf("id-%d", i), embedding.Embed(fmt.Sprintf("span %d", i), dim))
	}
	idx.Build()
	if !idx.Built() {
		t.Fatal("expected built")
	}

	_ = idx.Add("new-id", embedding.Embed("fresh span", dim))
	if idx.Built() {
		t.Error("expected built=false after Add following Build")
	}

	// Search should still work via exact scan fallback.
	results, err := idx.Search(embedding.Embed("fresh span", dim), 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Error("expected results from exact-scan fallback")
	}
}

func TestClusterInvariantsAfterBuild(t *testing.T) {
	dim := 24
	idx := New(dim, Config{NClusters: 5, NProbe: 3, MaxIter: 20, Seed: 3})
	for i := 0; i < 100; i++ {
		_ = idx.Add(fmt.Sprintf("id-%d", i), embedding.Embed(fmt.Sprintf("trajectory %d detail", i), dim))
	}
	idx.Build()

	if err := idx.VerifyInvariants(); err != nil {
		t.Fatalf("invariant check failed: %v", err)
	}
	if idx.Size() != 100 {
		t.Errorf("expected size 100, got %d", idx.Size())
	}
}

func TestClusterDimensionMismatch(t *testing.T) {
	idx := New(8, DefaultConfig())
	err := idx.Add("a", make([]float32, 4))
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

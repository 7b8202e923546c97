package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c := Load()
	if c.Matcher.MinTopK != 3 {
		t.Errorf("MinTopK = %d, want 3", c.Matcher.MinTopK)
	}
	if c.Matcher.EmbeddingDim != 384 {
		t.Errorf("EmbeddingDim = %d, want 384", c.Matcher.EmbeddingDim)
	}
	if c.GraphIndex.M != 16 {
		t.Errorf("GraphIndex.M = %d, want 16", c.GraphIndex.M)
	}
	if c.Cluster.NClusters != 10 {
		t.Errorf("Cluster.NClusters = %d, want 10", c.Cluster.NClusters)
	}
}

func TestLoadRespectsEnv(t *testing.T) {
	t.Setenv("TRAJMATCH_MIN_TOP_K", "5")
	t.Setenv("TRAJMATCH_MIN_SCORE", "0.5")

	c := Load()
	if c.Matcher.MinTopK != 5 {
		t.Errorf("MinTopK = %d, want 5", c.Matcher.MinTopK)
	}
	if c.Matcher.MinScore != 0.5 {
		t.Errorf("MinScore = %v, want 0.5", c.Matcher.MinScore)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/seed.yaml"
	content := []byte("matcher:\n  default_top_k: 25\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	c := Load()
	if err := LoadYAML(c, path); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if c.Matcher.DefaultTopK != 25 {
		t.Errorf("DefaultTopK = %d, want 25", c.Matcher.DefaultTopK)
	}
}

package predictioncache

import (
	"path/filepath"
	"testing"
	"time"
)

type stubPrediction struct {
	Output     string
	Confidence float64
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(Config{MaxSize: 10})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	key := Key{Environment: "prod", Action: "create_user", TopK: 10}
	want := stubPrediction{Output: "created", Confidence: 82}

	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got stubPrediction
	if !c.Get(key, &got) {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c, err := New(Config{MaxSize: 10})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	var out stubPrediction
	if c.Get(Key{Action: "unseen"}, &out) {
		t.Error("expected cache miss for unknown key")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(Config{MaxSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	keyA := Key{Action: "a"}
	keyB := Key{Action: "b"}
	keyC := Key{Action: "c"}

	_ = c.Put(keyA, stubPrediction{Output: "a"})
	_ = c.Put(keyB, stubPrediction{Output: "b"})
	_ = c.Put(keyC, stubPrediction{Output: "c"})

	var out stubPrediction
	if c.Get(keyA, &out) {
		t.Error("expected keyA to be evicted")
	}
	if !c.Get(keyB, &out) || !c.Get(keyC, &out) {
		t.Error("expected keyB and keyC to remain cached")
	}
}

func TestTTLExpiration(t *testing.T) {
	c, err := New(Config{MaxSize: 10, TTL: time.Nanosecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	key := Key{Action: "expires"}
	_ = c.Put(key, stubPrediction{Output: "stale"})
	time.Sleep(time.Millisecond)

	var out stubPrediction
	if c.Get(key, &out) {
		t.Error("expected expired entry to miss")
	}
}

func TestDurableTierSurvivesEviction(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache-db")
	c, err := New(Config{MaxSize: 1, DurablePath: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	keyA := Key{Action: "a"}
	keyB := Key{Action: "b"}
	_ = c.Put(keyA, stubPrediction{Output: "a"})
	_ = c.Put(keyB, stubPrediction{Output: "b"}) // evicts keyA from memory

	var out stubPrediction
	if !c.Get(keyA, &out) {
		t.Fatal("expected durable tier to serve evicted key")
	}
	if out.Output != "a" {
		t.Errorf("Get(keyA) = %+v, want Output=a", out)
	}
}

func TestKeyHashStableAndOrderSensitive(t *testing.T) {
	a := Key{Environment: "prod", Action: "x", PreviousActions: []string{"p1", "p2"}}
	b := Key{Environment: "prod", Action: "x", PreviousActions: []string{"p1", "p2"}}
	if a.Hash() != b.Hash() {
		t.Error("expected identical keys to hash identically")
	}

	c := Key{Environment: "prod", Action: "x", PreviousActions: []string{"p2", "p1"}}
	if a.Hash() == c.Hash() {
		t.Error("expected different previous-action order to hash differently")
	}
}

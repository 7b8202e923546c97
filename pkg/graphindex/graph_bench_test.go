package graphindex

import (
	"fmt"
	"testing"

	"github.com/orneryd/trajmatch/pkg/embedding"
)

func BenchmarkGraphInsert(b *testing.B) {
	g := New(128, DefaultConfig())
	vecs := make([][]float32, b.N)
	for i := range vecs {
		vecs[i] = embedding.Embed(fmt.Sprintf("benchmark trajectory %d", i), 128)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Insert(fmt.Sprintf("bench-%d", i), vecs[i])
	}
}

func BenchmarkGraphSearch(b *testing.B) {
	g := New(128, DefaultConfig())
	for i := 0; i < 2000; i++ {
		v := embedding.Embed(fmt.Sprintf("benchmark trajectory %d", i), 128)
		_ = g.Insert(fmt.Sprintf("bench-%d", i), v)
	}
	query := embedding.Embed("benchmark trajectory 42", 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Search(query, 10)
	}
}

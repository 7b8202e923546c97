package fallback

import (
	"context"
	"testing"

	"github.com/orneryd/trajmatch/pkg/matcher"
)

func TestStubAnswerNeverFails(t *testing.T) {
	s := NewStub()
	out, err := s.Answer(context.Background(), matcher.Context{Environment: "geography"}, "What is the capital of Spain?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty fallback answer")
	}
}

func TestStubAnswerDeterministic(t *testing.T) {
	s := NewStub()
	ctx := matcher.Context{Environment: "geography"}
	first, _ := s.Answer(context.Background(), ctx, "action")
	second, _ := s.Answer(context.Background(), ctx, "action")
	if first != second {
		t.Fatalf("expected deterministic answers, got %q and %q", first, second)
	}
}

// Package fallback defines the external-LLM fallback collaborator
// contract a host wires behind the Matcher when a prediction comes back
// low_confidence: spec.md §6 names this collaborator at its interface
// only, since an external LLM call is outside the trajectory-matching
// core.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/orneryd/trajmatch/pkg/matcher"
)

// Fallback answers a query without consulting the trajectory corpus,
// for when the Matcher's own prediction is too uncertain to act on.
type Fallback interface {
	Answer(ctx context.Context, mctx matcher.Context, action string) (string, error)
}

// Stub is a deterministic Fallback implementation with no network
// dependency: it echoes the query back as an acknowledgment rather than
// reasoning about it. It exists so method="fallback" is reachable in
// tests and local development; hosts wire a real LLM client behind the
// same Fallback interface in production.
type Stub struct{}

// NewStub returns a ready-to-use deterministic fallback.
func NewStub() *Stub {
	return &Stub{}
}

// Answer returns a fixed-shape acknowledgment string. It never fails.
func (s *Stub) Answer(_ context.Context, mctx matcher.Context, action string) (string, error) {
	parts := []string{action}
	if mctx.Environment != "" {
		parts = append(parts, "in "+mctx.Environment)
	}
	return fmt.Sprintf("No confident precedent found; routing: %s", strings.Join(parts, " ")), nil
}

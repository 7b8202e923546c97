// Package embedding maps text and structured input to fixed-dimension
// unit vectors using a deterministic hashing trick, so the same input
// always produces bit-identical output across runs and platforms.
//
// Unlike the provider-backed embedders a production deployment might
// also use (calling out to Ollama or OpenAI, say), this package never
// performs network I/O: it derives signed feature buckets straight from
// token hashes. That makes it the right building block for the
// trajectory-matching engine's core, where determinism is a contract,
// not just a nicety.
//
// Example:
//
//	v := embedding.Embed("User requested password reset", 384)
//	sim, _ := vector.Cosine(v, embedding.Embed("User requested password reset", 384))
//	// sim == 1
package embedding

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/orneryd/trajmatch/pkg/vector"
)

// streams is the number of hash streams mixed per token (H in the spec).
const streams = 3

var nonWord = regexp.MustCompile(`[^\w]+`)

// Embed maps input to a unit-norm vector of dimension dim using the
// hashing trick with signed features.
//
// Algorithm:
//  1. Lowercase, replace non-word runs with spaces, split on whitespace,
//     drop tokens of length <= 2.
//  2. Compute term frequency tf(t) = count(t) / total tokens.
//  3. For each unique token t and each stream h in [0, streams), bucket
//     b = hash(t, h) mod dim, sign s = +1/-1 from hash(t, h+1000) parity;
//     add s * tf(t) / streams to vector[b].
//  4. L2-normalize. An all-zero vector (no tokens survive step 1) is
//     returned unchanged.
func Embed(input string, dim int) []float32 {
	tokens := tokenize(input)
	vec := make([]float32, dim)

	if len(tokens) == 0 {
		return vec
	}

	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	total := float64(len(tokens))

	for term, count := range counts {
		tf := float64(count) / total
		for h := 0; h < streams; h++ {
			bucket := int(mix(term, uint64(h)) % uint64(dim))
			sign := float32(1)
			if mix(term, uint64(h+1000))%2 == 1 {
				sign = -1
			}
			vec[bucket] += sign * float32(tf/float64(streams))
		}
	}

	return normalize(vec)
}

// EmbedValue serializes an arbitrary structured value deterministically
// (encoding/json sorts map keys and emits struct fields in declaration
// order) before embedding it. Two calls with an
// equivalent value produce the same bytes and therefore the same
// vector.
func EmbedValue(value any, dim int) ([]float32, error) {
	buf, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return Embed(string(buf), dim), nil
}

// Cosine delegates to vector.Cosine so callers only need this package
// for embedding-adjacent operations.
func Cosine(u, v []float32) (float64, error) {
	return vector.Cosine(u, v)
}

// ToBase64 delegates to vector.ToBase64.
func ToBase64(v []float32) string {
	return vector.ToBase64(v)
}

// FromBase64 delegates to vector.FromBase64.
func FromBase64(s string) ([]float32, error) {
	return vector.FromBase64(s)
}

// tokenize lowercases input, replaces non-word characters with spaces,
// splits on whitespace, and drops tokens of length <= 2.
func tokenize(input string) []string {
	lowered := strings.ToLower(input)
	cleaned := nonWord.ReplaceAllString(lowered, " ")
	fields := strings.Fields(cleaned)

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// mix is a two-stream 64-bit hash: a seeded multiply-xor-shift over the
// token bytes combined with the stream seed h. It is deterministic
// across runs given the same term and seed — the exact polynomial is
// an implementation choice, not a contract, so long as it avalanches
// reasonably and never varies between calls.
func mix(term string, h uint64) uint64 {
	const (
		prime1 = 0x9E3779B185EBCA87
		prime2 = 0xC2B2AE3D27D4EB4F
	)

	x := 0xCBF29CE484222325 ^ (h * prime1)
	for i := 0; i < len(term); i++ {
		x ^= uint64(term[i])
		x *= prime2
		x ^= x >> 33
	}
	x *= prime1
	x ^= x >> 29
	x *= prime2
	x ^= x >> 32
	return x
}

// normalize L2-normalizes vec in place and returns it. An all-zero
// vector is returned unchanged.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, x := range vec {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return vec
	}

	norm := math.Sqrt(sumSquares)
	for i, x := range vec {
		vec[i] = float32(float64(x) / norm)
	}
	return vec
}

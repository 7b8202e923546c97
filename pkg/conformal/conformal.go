// Package conformal implements split-conformal uncertainty
// quantification: a quantile computed from a held-out calibration set
// is used to widen a point prediction into a coverage-valid interval,
// or to build a prediction set over candidate labels.
package conformal

import (
	"errors"
	"sort"
)

// ErrEmptyScores is returned by Calibrate when given no calibration
// scores.
var ErrEmptyScores = errors.New("conformal: scores must not be empty")

// Interval is a symmetric prediction interval around a point estimate.
type Interval struct {
	Lower    float64
	Upper    float64
	Coverage float64
}

// Calibrate sorts scores ascending and returns the conservative
// split-conformal quantile for confidence level 1-alpha: the element
// at index ceil((n+1)*(1-alpha)) - 1, clamped to [0, n-1].
func Calibrate(scores []float64, alpha float64) (float64, error) {
	n := len(scores)
	if n == 0 {
		return 0, ErrEmptyScores
	}

	sorted := make([]float64, n)
	copy(sorted, scores)
	sort.Float64s(sorted)

	idx := ceilDiv(float64(n+1)*(1-alpha)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx], nil
}

func ceilDiv(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}

// BuildInterval builds a symmetric interval of half-width q around
// pred, with nominal coverage 1-alpha.
func BuildInterval(pred, q, alpha float64) Interval {
	return Interval{
		Lower:    pred - q,
		Upper:    pred + q,
		Coverage: 1 - alpha,
	}
}

// PredictionSet returns every label in scores whose score does not
// exceed the calibrated quantile over calibScores at level alpha.
func PredictionSet(scores map[string]float64, calibScores []float64, alpha float64) ([]string, error) {
	q, err := Calibrate(calibScores, alpha)
	if err != nil {
		return nil, err
	}

	var out []string
	for label, score := range scores {
		if score <= q {
			out = append(out, label)
		}
	}
	return out, nil
}

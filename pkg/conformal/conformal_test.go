package conformal

import (
	"math"
	"sort"
	"testing"
)

func TestCalibrateScenario(t *testing.T) {
	scores := []float64{0.10, 0.15, 0.18, 0.20, 0.25, 0.30}
	q, err := Calibrate(scores, 0.1)
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if q != 0.30 {
		t.Errorf("Calibrate() = %v, want 0.30", q)
	}
}

func TestIntervalScenario(t *testing.T) {
	interval := BuildInterval(0.5, 0.30, 0.1)
	if !closeEnough(interval.Lower, 0.20) || !closeEnough(interval.Upper, 0.80) {
		t.Errorf("BuildInterval() = %+v, want lower=0.20 upper=0.80", interval)
	}
	if !closeEnough(interval.Coverage, 0.9) {
		t.Errorf("Coverage = %v, want 0.9", interval.Coverage)
	}
}

func TestCalibrateEmptyFails(t *testing.T) {
	_, err := Calibrate(nil, 0.1)
	if err == nil {
		t.Fatal("expected error for empty scores")
	}
}

func TestCalibrateReturnsElementOfScores(t *testing.T) {
	scores := []float64{0.4, 0.1, 0.9, 0.2, 0.6}
	for _, alpha := range []float64{0.05, 0.1, 0.2, 0.5, 0.9} {
		q, err := Calibrate(scores, alpha)
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}
		found := false
		for _, s := range scores {
			if s == q {
				found = true
			}
		}
		if !found {
			t.Errorf("Calibrate(scores, %v) = %v, not an element of scores", alpha, q)
		}
	}
}

func TestCalibrateDoesNotMutateInput(t *testing.T) {
	scores := []float64{0.4, 0.1, 0.9, 0.2}
	original := append([]float64(nil), scores...)
	_, _ = Calibrate(scores, 0.1)
	for i := range scores {
		if scores[i] != original[i] {
			t.Fatalf("Calibrate mutated input: got %v, want %v", scores, original)
		}
	}
}

func TestPredictionSetIncludesLowScores(t *testing.T) {
	scores := map[string]float64{
		"a": 0.1,
		"b": 0.5,
		"c": 0.9,
	}
	calib := []float64{0.1, 0.2, 0.3, 0.4, 0.5}

	set, err := PredictionSet(scores, calib, 0.2)
	if err != nil {
		t.Fatalf("PredictionSet() error = %v", err)
	}
	sort.Strings(set)

	q, _ := Calibrate(calib, 0.2)
	var want []string
	for label, s := range scores {
		if s <= q {
			want = append(want, label)
		}
	}
	sort.Strings(want)

	if len(set) != len(want) {
		t.Errorf("PredictionSet() = %v, want %v", set, want)
	}
}

func TestPredictionSetPropagatesCalibrateError(t *testing.T) {
	_, err := PredictionSet(map[string]float64{"a": 0.1}, nil, 0.1)
	if err == nil {
		t.Fatal("expected error from empty calibration set")
	}
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

package testutil

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 1 {
		t.Fatalf("MaxAbsDiff = %v, want 1", d)
	}
	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestArgMax(t *testing.T) {
	if got := ArgMax(nil); got != -1 {
		t.Fatalf("ArgMax(nil) = %d, want -1", got)
	}
	if got := ArgMax([]float64{0.1, 3, -2, 3}); got != 1 {
		t.Fatalf("ArgMax = %d, want 1 (first maximum)", got)
	}
}

func TestRequireDenseNearlyEqual(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 2, 3, 4 + 1e-12})
	RequireDenseNearlyEqual(t, a, b, 1e-9)
}

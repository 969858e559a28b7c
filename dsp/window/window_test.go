package window

import (
	"math"
	"testing"

	dspwindow "github.com/mjibson/go-dsp/window"

	"github.com/cwbudde/algo-pitch/internal/testutil"
)

func TestGenerateLengthsAndFinite(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeKaiser} {
		t.Run(typ.String(), func(t *testing.T) {
			w := Generate(typ, 64)
			if len(w) != 64 {
				t.Fatalf("len=%d, want 64", len(w))
			}
			testutil.RequireFinite(t, w)
		})
	}
}

func TestHannMatchesGoDSP(t *testing.T) {
	for _, n := range []int{2, 7, 64, 215} {
		got, err := Hann(n)
		if err != nil {
			t.Fatalf("Hann(%d): %v", n, err)
		}
		testutil.RequireSliceNearlyEqual(t, got, dspwindow.Hann(n), 1e-12)
	}
}

func TestPeriodicHannIsTruncatedSymmetric(t *testing.T) {
	const n = 32
	periodic := Generate(TypeHann, n, WithPeriodic())
	symmetric := Generate(TypeHann, n+1)
	testutil.RequireSliceNearlyEqual(t, periodic, symmetric[:n], 1e-12)
}

func TestKaiserShape(t *testing.T) {
	w, err := Kaiser(65, 8)
	if err != nil {
		t.Fatalf("Kaiser: %v", err)
	}
	if math.Abs(w[32]-1) > 1e-12 {
		t.Fatalf("center = %v, want 1", w[32])
	}
	for i := range 32 {
		if math.Abs(w[i]-w[64-i]) > 1e-12 {
			t.Fatalf("not symmetric at %d: %v vs %v", i, w[i], w[64-i])
		}
		if w[i] > w[i+1]+1e-15 {
			t.Fatalf("not rising towards center at %d", i)
		}
	}
	// I0(8) ~ 427.56, so the edge sits at 1/I0(8).
	if math.Abs(w[0]-1/BesselI0(8)) > 1e-12 {
		t.Fatalf("edge = %v", w[0])
	}
}

func TestBesselI0(t *testing.T) {
	tests := []struct{ x, want float64 }{
		{0, 1},
		{1, 1.2660658777520082},
		{8, 427.56411572180474},
	}
	for _, tc := range tests {
		if got := BesselI0(tc.x); math.Abs(got-tc.want)/tc.want > 1e-12 {
			t.Errorf("BesselI0(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}

func TestApply(t *testing.T) {
	buf := []float64{2, 2, 2, 2, 2}
	Apply(TypeHann, buf)
	testutil.RequireSliceNearlyEqual(t, buf, []float64{0, 1, 2, 1, 0}, 1e-12)

	out, err := ApplyCoefficients([]float64{1, 2}, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("ApplyCoefficients: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, out, []float64{0.5, 1}, 0)
}

func TestValidation(t *testing.T) {
	if _, err := Hann(0); err == nil {
		t.Fatal("expected error for size 0")
	}
	if _, err := Kaiser(8, -1); err == nil {
		t.Fatal("expected error for negative beta")
	}
	if _, err := ApplyCoefficients([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if Generate(TypeHann, 0) != nil {
		t.Fatal("Generate with length 0 should return nil")
	}
}

package cqt

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-pitch/internal/testutil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func newTestEngine(t *testing.T, contour bool, opts ...Option) *Engine {
	t.Helper()

	p := NewParams(DefaultConstants(), contour)
	store, err := DesignKernelStore(p)
	if err != nil {
		t.Fatalf("DesignKernelStore: %v", err)
	}

	e, err := New(p, store, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestForwardFrameCount(t *testing.T) {
	e := newTestEngine(t, false)
	audio := testutil.DeterministicNoise(1, 1, 3000)

	for _, n := range []int{1, 2, 63, 64, 1000, 3000} {
		for _, hop := range []int{1, 7, 64, 256, 5000} {
			out, err := e.Forward(audio[:n], hop)
			if err != nil {
				t.Fatalf("n=%d hop=%d: %v", n, hop, err)
			}
			rows, cols := out.Dims()
			if rows != n/hop+1 || cols != e.params.TopOctaveBins() {
				t.Fatalf("n=%d hop=%d: got %dx%d, want %dx%d", n, hop, rows, cols, n/hop+1, e.params.TopOctaveBins())
			}
		}
	}
}

func TestForwardMatchesSequentialProjection(t *testing.T) {
	e := newTestEngine(t, false, WithWorkers(3))
	audio := testutil.DeterministicNoise(2, 1, 700)
	const hop = 32

	got, err := e.Forward(audio, hop)
	if err != nil {
		t.Fatal(err)
	}

	padded := reflectPad(audio, e.params.FFTWindowSize/2)
	rows, cols := got.Dims()
	for i := range rows {
		frame := padded[i*hop : i*hop+e.params.FFTWindowSize]
		for k := range cols {
			want := complex(floats.Dot(frame, e.store.Real.RawRowView(k)), floats.Dot(frame, e.store.Imag.RawRowView(k)))
			if got.At(i, k) != want {
				t.Fatalf("frame %d bin %d: %v, want %v", i, k, got.At(i, k), want)
			}
		}
	}
}

func TestForwardErrors(t *testing.T) {
	e := newTestEngine(t, false)
	if _, err := e.Forward(nil, 256); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty segment, got %v", err)
	}
	if _, err := e.Forward([]float64{1, 2, 3}, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for hop 0, got %v", err)
	}
}

func TestComputeRescalesToUnitRange(t *testing.T) {
	e := newTestEngine(t, true)
	audio := testutil.DeterministicNoise(3, 0.5, 8192)

	out, err := e.Compute(audio, false)
	if err != nil {
		t.Fatal(err)
	}

	rows, cols := out.Dims()
	if rows != 309 || cols != 8192/256+1 {
		t.Fatalf("dims %dx%d", rows, cols)
	}

	data := out.RawMatrix().Data
	testutil.RequireFinite(t, data)
	if lo, hi := floats.Min(data), floats.Max(data); lo != 0 || hi != 1 {
		t.Fatalf("range [%v, %v], want [0, 1]", lo, hi)
	}
}

func TestComputeBatchNorm(t *testing.T) {
	e := newTestEngine(t, true)
	audio := testutil.DeterministicNoise(4, 0.5, 4096)

	plain, err := e.Compute(audio, false)
	if err != nil {
		t.Fatal(err)
	}
	normed, err := e.Compute(audio, true)
	if err != nil {
		t.Fatal(err)
	}

	b := DefaultBatchNorm()
	want := mat.DenseCopyOf(plain)
	want.Apply(func(_, _ int, v float64) float64 {
		return (v-b.Mean)*b.Gamma/math.Sqrt(b.Variance+b.Epsilon) + b.Beta
	}, want)
	testutil.RequireDenseNearlyEqual(t, normed, want, 1e-12)
}

func TestComputeSilence(t *testing.T) {
	e := newTestEngine(t, true)

	out, err := e.Compute(testutil.Silence(4096), false)
	if err != nil {
		t.Fatal(err)
	}
	data := out.RawMatrix().Data
	testutil.RequireFinite(t, data)
	if floats.Max(data) != 0 || floats.Min(data) != 0 {
		t.Fatalf("silent input should give an all-zero matrix, got [%v, %v]", floats.Min(data), floats.Max(data))
	}
}

func TestComputeSinePeak(t *testing.T) {
	e := newTestEngine(t, true)
	p := e.Params()

	for _, freq := range []float64{110, 440, 1000} {
		audio := testutil.DeterministicSine(freq, float64(p.SampleRate), 0.8, p.SampleRate)

		out, err := e.Compute(audio, false)
		if err != nil {
			t.Fatal(err)
		}

		_, cols := out.Dims()
		col := mat.Col(nil, cols/2, out)
		peak := testutil.ArgMax(col)

		lo, hi := p.BinFrequency(peak-1), p.BinFrequency(peak+1)
		if freq < lo || freq > hi {
			t.Fatalf("%v Hz: peak bin %d (%.1f Hz) outside one bin", freq, peak, p.BinFrequency(peak))
		}
	}
}

func TestDecimationModesDiffer(t *testing.T) {
	audio := testutil.DeterministicNoise(5, 1, 8192)
	top := NewParams(DefaultConstants(), true).TopOctaveBins()
	nBins := 309

	// Octave 1 occupies rows [nBins-2*top, nBins-top), octave 2 the block below.
	blocksEqual := func(s *spectrum) bool {
		for f := range s.re {
			for j := range top {
				a, b := nBins-2*top+j, nBins-3*top+j
				if s.re[f][a] != s.re[f][b] || s.im[f][a] != s.im[f][b] {
					return false
				}
			}
		}
		return true
	}

	once := newTestEngine(t, true, WithDecimation(DecimateOnce))
	s, err := once.assemble(audio)
	if err != nil {
		t.Fatal(err)
	}
	if !blocksEqual(s) {
		t.Fatal("DecimateOnce: octaves 1 and 2 should see the same signal")
	}

	chained := newTestEngine(t, true)
	s, err = chained.assemble(audio)
	if err != nil {
		t.Fatal(err)
	}
	if blocksEqual(s) {
		t.Fatal("DecimateChained: octaves 1 and 2 should differ")
	}
}

func TestOctaveRangesCoverAxisOnce(t *testing.T) {
	for _, contour := range []bool{false, true} {
		p := NewParams(DefaultConstants(), contour)
		ranges, err := octaveRanges(p.NBins, p.TopOctaveBins(), p.NOctaves)
		if err != nil {
			t.Fatal(err)
		}

		hits := make([]int, p.NBins)
		for _, r := range ranges {
			for j := range r.n {
				hits[r.dst+j]++
			}
		}
		for b, h := range hits {
			if h != 1 {
				t.Fatalf("contour=%v: bin %d written %d times", contour, b, h)
			}
		}

		last := ranges[len(ranges)-1]
		if last.dst != 0 || last.src != p.NOctaves*p.TopOctaveBins()-p.NBins {
			t.Fatalf("contour=%v: lowest octave %+v", contour, last)
		}
	}
}

func TestComputeConcurrentCallers(t *testing.T) {
	e := newTestEngine(t, false)
	audio := testutil.DeterministicSine(220, 22050, 0.5, 6000)

	want, err := e.Compute(audio, true)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]*mat.Dense, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.Compute(audio, true)
		}()
	}
	wg.Wait()

	for i, got := range results {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		testutil.RequireDenseNearlyEqual(t, got, want, 0)
	}
}

func TestDecimate(t *testing.T) {
	lp, err := DesignLowpass(LowpassTaps, LowpassCutoff, LowpassBeta)
	if err != nil {
		t.Fatal(err)
	}

	x := testutil.DeterministicSine(100, 22050, 1, 4000)
	y, err := Decimate(x, lp)
	if err != nil {
		t.Fatal(err)
	}
	if len(y) != 2000 {
		t.Fatalf("len = %d, want 2000", len(y))
	}

	// A tone far below the cutoff passes at unit gain away from the edges.
	// The even-length filter centres output j at input sample 2j+0.5.
	want := make([]float64, len(y))
	for j := range want {
		want[j] = math.Sin(2 * math.Pi * 100 * (2*float64(j) + 0.5) / 22050)
	}
	diff, err := testutil.MaxAbsDiff(y[200:1800], want[200:1800])
	if err != nil {
		t.Fatal(err)
	}
	if diff > 1e-3 {
		t.Fatalf("decimated tone deviates by %v", diff)
	}

	if _, err := Decimate([]float64{1}, lp); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

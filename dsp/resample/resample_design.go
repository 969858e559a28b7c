package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-pitch/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// designPolyphaseFIR builds a Kaiser-windowed sinc prototype with DC gain up
// and splits it into up polyphase branches.
func designPolyphaseFIR(up, down int, cfg config) ([]float64, [][]float64, int, error) {
	nTaps := cfg.tapsPerPhase * up

	fc := (0.5 / float64(max(up, down))) * cfg.cutoffScale
	if fc <= 0 || fc >= 0.5 {
		return nil, nil, 0, fmt.Errorf("resample: invalid cutoff %.6f", fc)
	}

	taps, err := window.Kaiser(nTaps, cfg.kaiserBeta)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("resample: %w", err)
	}

	center := 0.5 * float64(nTaps-1)
	for n := range taps {
		taps[n] *= 2 * fc * sinc(2*fc*(float64(n)-center))
	}

	sum := floats.Sum(taps)
	if sum == 0 {
		return nil, nil, 0, errors.New("resample: designed zero-sum filter")
	}
	floats.Scale(float64(up)/sum, taps)

	phases := make([][]float64, up)
	maxPhaseLn := 0

	for p := range up {
		phase := make([]float64, 0, (nTaps-p+up-1)/up)
		for i := p; i < nTaps; i += up {
			phase = append(phase, taps[i])
		}
		maxPhaseLn = max(maxPhaseLn, len(phase))
		phases[p] = phase
	}

	return taps, phases, maxPhaseLn, nil
}

// approximateRatio finds num/den close to v with den <= maxDen by continued
// fractions.
func approximateRatio(v float64, maxDen int) (num, den int) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	p0, q0 := 1.0, 0.0
	p1, q1 := math.Floor(v), 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac == 0 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)

		p2 := a*p1 + p0
		q2 := a*q1 + q0
		if q2 > float64(maxDen) {
			break
		}

		p0, q0 = p1, q1
		p1, q1 = p2, q2
	}

	num = int(math.Round(p1))
	den = int(math.Round(q1))
	if den <= 0 || num <= 0 {
		return 1, 1
	}

	g := gcd(num, den)
	return num / g, den / g
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

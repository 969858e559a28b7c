package cqt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// HarmonicShift is the bin offset of harmonic ratio at the given resolution.
func HarmonicShift(binsPerSemitone int, ratio float64) int {
	return int(math.Round(12 * float64(binsPerSemitone) * math.Log2(ratio)))
}

// Harmonics returns the ratios {0.5, 1, 2, ..., n-1}.
func Harmonics(n int) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, 0, n)
	out = append(out, 0.5)
	for h := 1; h < n; h++ {
		out = append(out, float64(h))
	}
	return out
}

// HarmonicStack shifts cqt (bins x frames) by each harmonic's bin offset,
// crops or zero-pads it to outputBins rows and returns the transposes
// (frames x outputBins), one per harmonic.
//
// A positive shift moves content toward lower bins; rows shifted past either
// end are dropped and vacated rows are zero.
func HarmonicStack(cqt *mat.Dense, binsPerSemitone int, harmonics []float64, outputBins int) ([]*mat.Dense, error) {
	if cqt == nil {
		return nil, fmt.Errorf("%w: nil spectrum", ErrInvalidInput)
	}
	if outputBins < 1 {
		return nil, fmt.Errorf("%w: output bins %d", ErrInvalidInput, outputBins)
	}

	nBins, nFrames := cqt.Dims()
	stack := make([]*mat.Dense, len(harmonics))

	for h, ratio := range harmonics {
		if ratio <= 0 {
			return nil, fmt.Errorf("%w: harmonic ratio %g", ErrInvalidInput, ratio)
		}
		shift := HarmonicShift(binsPerSemitone, ratio)

		out := mat.NewDense(nFrames, outputBins, nil)
		for b := range min(outputBins, nBins) {
			src := b + shift
			if src < 0 || src >= nBins {
				continue
			}
			for f := range nFrames {
				out.Set(f, b, cqt.At(src, f))
			}
		}
		stack[h] = out
	}

	return stack, nil
}

package cqt

import (
	"fmt"
	"slices"

	"github.com/cwbudde/algo-pitch/dsp/conv"
)

// DecimationMode selects how the signal for each lower octave is produced.
type DecimationMode int

const (
	// DecimateChained filters and decimates octave i from octave i-1.
	DecimateChained DecimationMode = iota
	// DecimateOnce feeds every lower octave a single 2x decimation of the
	// input at half the hop. Kept only to reproduce legacy output.
	DecimateOnce
)

func (m DecimationMode) String() string {
	switch m {
	case DecimateChained:
		return "chained"
	case DecimateOnce:
		return "once"
	default:
		return fmt.Sprintf("DecimationMode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m DecimationMode) MarshalText() ([]byte, error) {
	switch m {
	case DecimateChained, DecimateOnce:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("%w: decimation mode %d", ErrInvalidInput, int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DecimationMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "chained", "":
		*m = DecimateChained
	case "once":
		*m = DecimateOnce
	default:
		return fmt.Errorf("%w: decimation mode %q", ErrInvalidInput, text)
	}
	return nil
}

// Decimate low-pass filters x with filter and keeps every second sample. The
// output has floor((N + 2p - K)/2) + 1 samples with p = (K-1)/2.
func Decimate(x, filter []float64) ([]float64, error) {
	d, err := conv.NewDecimator(filter, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return decimateWith(d, x)
}

func decimateWith(d *conv.Decimator, x []float64) ([]float64, error) {
	y, err := d.Process(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return y, nil
}

type octaveInput struct {
	signal []float64
	hop    int
}

// octaveInputs builds the per-octave signals before any octave is projected,
// so the parallel region only reads them.
func (e *Engine) octaveInputs(audio []float64) ([]octaveInput, error) {
	n := e.params.NOctaves
	inputs := make([]octaveInput, n)
	inputs[0] = octaveInput{signal: audio, hop: e.params.SamplesPerFrame}

	if n == 1 {
		return inputs, nil
	}

	switch e.mode {
	case DecimateOnce:
		down, err := decimateWith(e.decimator, audio)
		if err != nil {
			return nil, err
		}
		for i := 1; i < n; i++ {
			inputs[i] = octaveInput{signal: down, hop: e.params.SamplesPerFrame / 2}
		}
	default:
		for i := 1; i < n; i++ {
			down, err := decimateWith(e.decimator, inputs[i-1].signal)
			if err != nil {
				return nil, fmt.Errorf("octave %d: %w", i, err)
			}
			inputs[i] = octaveInput{signal: down, hop: inputs[i-1].hop / 2}
		}
	}

	return inputs, nil
}

// rowRange maps rows [src, src+n) of an octave output onto rows [dst, dst+n)
// of the stacked matrix.
type rowRange struct {
	octave int
	dst    int
	src    int
	n      int
}

// octaveRanges places octave i at rows nBins-(i+1)*top, clipping the lowest
// octave at row 0, and checks that the ranges are in bounds and disjoint.
func octaveRanges(nBins, top, nOctaves int) ([]rowRange, error) {
	ranges := make([]rowRange, 0, nOctaves)

	for i := range nOctaves {
		start := nBins - (i+1)*top
		r := rowRange{octave: i, dst: start, n: top}
		if start < 0 {
			r.dst = 0
			r.src = -start
			r.n = top + start
		}
		if r.n <= 0 {
			continue
		}
		if r.dst+r.n > nBins || r.src+r.n > top {
			return nil, fmt.Errorf("%w: octave %d rows [%d,%d) of %d", ErrRange, i, r.dst, r.dst+r.n, nBins)
		}
		ranges = append(ranges, r)
	}

	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b rowRange) int { return a.dst - b.dst })
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if prev.dst+prev.n > sorted[i].dst {
			return nil, fmt.Errorf("%w: octaves %d and %d overlap", ErrRange, prev.octave, sorted[i].octave)
		}
	}

	return ranges, nil
}

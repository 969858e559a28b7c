package cqt

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-pitch/dsp/window"
	dspwindow "github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Low-pass design used by DesignKernelStore. The cutoff sits just under the
// quarter-rate edge so the 2x decimation that follows does not alias.
const (
	LowpassTaps   = 256
	LowpassCutoff = 0.2425
	LowpassBeta   = 8.0
)

// DesignKernel builds the top-octave kernel for p. Row k is a periodic Hann
// window of length ceil(Q*SR/f_k) modulated to f_k = FMinT*2^(k/BPO), scaled
// by 1/l, L1-normalized and centred in an FFTWindowSize frame.
func DesignKernel(p Params) (re, im *mat.Dense) {
	bins, width := p.TopOctaveBins(), p.FFTWindowSize
	re = mat.NewDense(bins, width, nil)
	im = mat.NewDense(bins, width, nil)

	sr := float64(p.SampleRate)
	for k := range bins {
		freq := p.FMinT * math.Pow(2, float64(k)/float64(p.BinsPerOctave))
		l := min(p.KernelLength(freq), width)

		start := int(math.Ceil(float64(width)/2 - float64(l)/2))
		if l%2 == 1 {
			start--
		}
		start = max(start, 0)

		// go-dsp only has the symmetric form; drop the last point for periodic.
		hann := dspwindow.Hann(l + 1)[:l]

		sig := make([]complex128, l)
		var norm float64
		t0 := -(l + 1) / 2
		for n := range l {
			t := float64(t0 + n)
			sig[n] = complex(hann[n]/float64(l), 0) * cmplx.Exp(complex(0, 2*math.Pi*freq*t/sr))
			norm += cmplx.Abs(sig[n])
		}
		if norm == 0 {
			continue
		}

		rowRe := re.RawRowView(k)
		rowIm := im.RawRowView(k)
		for n, v := range sig {
			if start+n >= width {
				break
			}
			rowRe[start+n] = real(v) / norm
			rowIm[start+n] = imag(v) / norm
		}
	}

	return re, im
}

// DesignLowpass returns a Kaiser-windowed sinc low-pass filter with unity DC
// gain. cutoff is in cycles per sample.
func DesignLowpass(taps int, cutoff, beta float64) ([]float64, error) {
	if taps < 1 {
		return nil, fmt.Errorf("%w: low-pass needs at least one tap, got %d", ErrInvalidInput, taps)
	}
	if cutoff <= 0 || cutoff >= 0.5 {
		return nil, fmt.Errorf("%w: cutoff %g outside (0, 0.5)", ErrInvalidInput, cutoff)
	}

	h, err := window.Kaiser(taps, beta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	center := float64(taps-1) / 2
	for n := range h {
		x := 2 * cutoff * (float64(n) - center)
		s := 1.0
		if x != 0 {
			s = math.Sin(math.Pi*x) / (math.Pi * x)
		}
		h[n] *= 2 * cutoff * s
	}

	floats.Scale(1/floats.Sum(h), h)

	return h, nil
}

// DesignKernelStore builds a complete store in memory.
func DesignKernelStore(p Params) (*KernelStore, error) {
	re, im := DesignKernel(p)

	lowpass, err := DesignLowpass(LowpassTaps, LowpassCutoff, LowpassBeta)
	if err != nil {
		return nil, err
	}

	store := &KernelStore{Real: re, Imag: im, Lowpass: lowpass}
	if err := store.Validate(p); err != nil {
		return nil, err
	}

	return store, nil
}

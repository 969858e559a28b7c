package conv

import "fmt"

// Decimator low-pass filters a signal and keeps every factor-th sample.
//
// The result equals a 1-D cross-correlation of the zero-padded signal with the
// filter taken at stride factor, with pad = (K-1)/2 on both sides:
//
//	y[j] = sum_k x[j*factor + k - pad] * h[k]
//
// A Decimator is immutable after construction and safe for concurrent use.
type Decimator struct {
	factor  int
	pad     int
	taps    int
	reverse []float64
	oa      *OverlapAdd
}

// NewDecimator creates a decimator for the given low-pass filter and factor.
func NewDecimator(filter []float64, factor int) (*Decimator, error) {
	if len(filter) == 0 {
		return nil, ErrEmptyKernel
	}
	if factor < 1 {
		return nil, ErrInvalidFactor
	}

	// Correlation is convolution with the time-reversed filter.
	reverse := make([]float64, len(filter))
	for i, v := range filter {
		reverse[len(filter)-1-i] = v
	}

	d := &Decimator{
		factor:  factor,
		pad:     (len(filter) - 1) / 2,
		taps:    len(filter),
		reverse: reverse,
	}

	if len(filter) > directThreshold {
		oa, err := NewOverlapAdd(reverse, 0)
		if err != nil {
			return nil, err
		}
		d.oa = oa
	}

	return d, nil
}

// Factor returns the decimation factor.
func (d *Decimator) Factor() int { return d.factor }

// OutputLen returns the number of samples Process yields for n input samples,
// or 0 when the input is too short.
func (d *Decimator) OutputLen(n int) int {
	span := n + 2*d.pad - d.taps
	if n <= 0 || span < 0 {
		return 0
	}
	return span/d.factor + 1
}

// Process filters and decimates x into a new slice.
func (d *Decimator) Process(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	n := d.OutputLen(len(x))
	if n == 0 {
		return nil, fmt.Errorf("%w: %d samples, %d taps", ErrInputTooShort, len(x), d.taps)
	}

	var (
		full []float64
		err  error
	)
	if d.oa != nil {
		full, err = d.oa.Process(x)
	} else {
		full, err = Direct(x, d.reverse)
	}
	if err != nil {
		return nil, err
	}

	// full[m] holds the correlation at padded offset m - (K-1) + pad.
	offset := d.taps - 1 - d.pad
	last := (n-1)*d.factor + offset
	if last >= len(full) {
		return nil, fmt.Errorf("%w: index %d beyond %d", ErrLengthMismatch, last, len(full))
	}

	out := make([]float64, n)
	for j := range out {
		out[j] = full[j*d.factor+offset]
	}

	return out, nil
}

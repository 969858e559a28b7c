// Package conv provides linear convolution and the filter-and-decimate
// primitive used by the constant-Q octave cascade.
//
// Two convolution strategies are available:
//
//   - Direct: O(N*M) time-domain convolution, best for short kernels
//   - Overlap-add (OLA): FFT-based block convolution for longer kernels
//
// [Convolve] picks between them by kernel length. For repeated filtering with
// the same kernel, build an [OverlapAdd] once and reuse it; it keeps no
// per-call state and may be shared between goroutines.
//
// # Decimation
//
// A [Decimator] low-pass filters and keeps every factor-th sample. Its output
// matches a strided 1-D correlation with (K-1)/2 zeros of padding on each side:
//
//	d, err := conv.NewDecimator(lowpass, 2)
//	half, err := d.Process(signal) // len == (len(signal)+2p-K)/2 + 1
package conv

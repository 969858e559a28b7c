// Package cqt implements the multi-octave constant-Q transform that feeds the
// transcription models.
//
// Only the top octave is projected directly, against a complex kernel whose
// rows are windowed complex exponentials. Every lower octave reuses the same
// kernel on a signal that has been low-pass filtered and decimated by two,
// with the hop halved to keep frames aligned. The octave outputs are stacked
// into an n_bins x n_frames matrix, normalized per bin, converted to log
// power and rescaled to [0, 1].
//
// Geometry comes from [Params], derived once from [Constants]:
//
//	p := cqt.NewParams(cqt.DefaultConstants(), true) // contour resolution
//	store, err := cqt.DesignKernelStore(p)         // or cqt.LoadKernelStore(dir, p)
//	eng, err := cqt.New(p, store)
//	stack, err := eng.HarmonicCQT(audio)
//
// # Decimation chain
//
// [DecimateChained] (the default) filters octave i from octave i-1. The
// [DecimateOnce] mode reproduces an older parallel loop in which every lower
// octave saw a single 2x decimation of the input at half the hop. It exists
// for comparison against outputs produced that way and should not be used for
// new work.
package cqt

package cqt_test

import (
	"fmt"

	"github.com/cwbudde/algo-pitch/dsp/cqt"
)

func ExampleNewParams() {
	p := cqt.NewParams(cqt.DefaultConstants(), true)

	fmt.Printf("bins=%d octaves=%d window=%d\n", p.NBins, p.NOctaves, p.FFTWindowSize)
	fmt.Printf("Q=%.2f fmin_t=%.1f fmax_t=%.1f\n", p.QualityFactor, p.FMinT, p.FMaxT)
	fmt.Printf("bin 144 = %.1f Hz\n", p.BinFrequency(144))

	// Output:
	// bins=309 octaves=9 window=256
	// Q=51.44 fmin_t=5274.0 fmax_t=10346.9
	// bin 144 = 440.0 Hz
}

func ExampleHarmonicShift() {
	for _, h := range cqt.Harmonics(4) {
		fmt.Printf("%.1f:%d ", h, cqt.HarmonicShift(3, h))
	}
	fmt.Println()

	// Output:
	// 0.5:-36 1.0:0 2.0:36 3.0:57
}

package window_test

import (
	"fmt"

	"github.com/cwbudde/algo-pitch/dsp/window"
)

func ExampleGenerate() {
	w := window.Generate(window.TypeHann, 4, window.WithPeriodic())
	fmt.Printf("%.2f %.2f %.2f %.2f\n", w[0], w[1], w[2], w[3])
	// Output:
	// 0.00 0.50 1.00 0.50
}

package cqt

// reflectPad extends x by pad samples on each side, mirroring about the edge
// samples without repeating them. Pads longer than the signal keep
// reflecting, so the extension is periodic with period 2(len-1). A single
// sample is replicated.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	copy(out[pad:], x)

	if n == 1 {
		for i := range out {
			out[i] = x[0]
		}
		return out
	}

	period := 2 * (n - 1)
	for j := range pad {
		out[j] = x[mirrorIndex(j-pad, n, period)]
		out[pad+n+j] = x[mirrorIndex(n+j, n, period)]
	}

	return out
}

func mirrorIndex(i, n, period int) int {
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - m
	}
	return m
}

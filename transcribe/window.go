package transcribe

// windows splits audio into fixed-length windows. The signal is first
// delayed by half the overlap so the first window's trimmed output starts at
// frame zero. Windows start every WindowHop samples; the last one is
// zero-padded.
func (c Config) windows(audio []float64) [][]float64 {
	lead := c.OverlapFrames * c.Hop() / 2
	total := lead + len(audio)
	step := c.WindowHop()

	var out [][]float64
	for start := 0; start < total; start += step {
		w := make([]float64, c.WindowSamples)
		for i := range w {
			j := start + i - lead
			if j >= len(audio) {
				break
			}
			if j >= 0 {
				w[i] = audio[j]
			}
		}
		out = append(out, w)
	}

	return out
}

// Frames is the number of output frames for n samples.
func (c Config) Frames(n int) int {
	hop := c.Hop()
	return (n + hop - 1) / hop
}

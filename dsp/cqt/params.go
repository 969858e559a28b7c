package cqt

import (
	"math"
)

// Constants are the musical and model constants the transform geometry is
// derived from.
type Constants struct {
	SampleRate             int     `json:"sample_rate"`
	Hop                    int     `json:"hop"`
	MinFreq                float64 `json:"min_freq"`
	SemitonesPerOctave     int     `json:"semitones_per_octave"`
	Semitones              int     `json:"semitones"`
	NoteBinsPerSemitone    int     `json:"note_bins_per_semitone"`
	ContourBinsPerSemitone int     `json:"contour_bins_per_semitone"`
	Harmonics              int     `json:"harmonics"`
	ContourOutputBins      int     `json:"contour_output_bins"`
	NoteBins               int     `json:"note_bins"`
}

// DefaultConstants returns the calibration the shipped models were trained with.
func DefaultConstants() Constants {
	return Constants{
		SampleRate:             22050,
		Hop:                    256,
		MinFreq:                27.5,
		SemitonesPerOctave:     12,
		Semitones:              103,
		NoteBinsPerSemitone:    1,
		ContourBinsPerSemitone: 3,
		Harmonics:              8,
		ContourOutputBins:      264,
		NoteBins:               88,
	}
}

// Params is the derived transform geometry. It is a value type and never
// changes after NewParams.
type Params struct {
	SampleRate      int
	BinsPerSemitone int
	BinsPerOctave   int
	NBins           int
	FreqMin         float64
	FreqMax         float64
	SamplesPerFrame int
	NOctaves        int
	FFTWindowSize   int
	QualityFactor   float64
	FramesPerSecond int

	// FMinT and FMaxT bound the top octave, the only one projected directly.
	FMinT float64
	FMaxT float64
}

// NewParams derives the transform geometry at note resolution, or at the
// finer contour resolution when contour is true.
func NewParams(c Constants, contour bool) Params {
	bps := c.NoteBinsPerSemitone
	if contour {
		bps = c.ContourBinsPerSemitone
	}

	p := Params{
		SampleRate:      c.SampleRate,
		BinsPerSemitone: bps,
		BinsPerOctave:   c.SemitonesPerOctave * bps,
		NBins:           c.Semitones * bps,
		FreqMin:         c.MinFreq,
		SamplesPerFrame: c.Hop,
	}

	bpo := float64(p.BinsPerOctave)
	p.NOctaves = int(math.Ceil(float64(p.NBins) / bpo))
	p.QualityFactor = 1 / (math.Pow(2, 1/bpo) - 1)

	fminT0 := p.FreqMin * math.Pow(2, float64(p.NOctaves-1))
	if r := p.NBins % p.BinsPerOctave; r == 0 {
		p.FMaxT = fminT0 * math.Pow(2, 1-1/bpo)
	} else {
		p.FMaxT = fminT0 * math.Pow(2, float64(r-1)/bpo)
	}
	p.FMinT = p.FMaxT / math.Pow(2, 1-1/bpo)
	p.FreqMax = p.FreqMin * math.Pow(2, float64(p.NBins-1)/bpo)

	widest := p.QualityFactor * float64(p.SampleRate) / p.FMinT
	p.FFTWindowSize = 1 << int(math.Ceil(math.Log2(widest)+1e-6))
	p.FramesPerSecond = p.SampleRate / p.SamplesPerFrame

	return p
}

// BinFrequency returns the centre frequency of bin i on the stacked axis.
func (p Params) BinFrequency(i int) float64 {
	return p.FreqMin * math.Pow(2, float64(i)/float64(p.BinsPerOctave))
}

// TopOctaveBins is the number of kernel rows.
func (p Params) TopOctaveBins() int {
	return min(p.BinsPerOctave, p.NBins)
}

// KernelLength is the filter length in samples for frequency f.
func (p Params) KernelLength(f float64) int {
	return int(math.Ceil(p.QualityFactor * float64(p.SampleRate) / f))
}

// BatchNorm is the fixed affine transform applied after min-max rescaling.
type BatchNorm struct {
	Gamma    float64 `json:"gamma"`
	Beta     float64 `json:"beta"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Epsilon  float64 `json:"epsilon"`
}

// DefaultBatchNorm returns the constants calibrated with the shipped models.
func DefaultBatchNorm() BatchNorm {
	return BatchNorm{
		Gamma:    0.48823851346969604,
		Beta:     0.3687160313129425,
		Mean:     0.5021218657493591,
		Variance: 0.03773479163646698,
		Epsilon:  0.001,
	}
}

// Scale and Shift return the equivalent x*scale + shift coefficients.
func (b BatchNorm) Scale() float64 { return b.Gamma / math.Sqrt(b.Variance+b.Epsilon) }
func (b BatchNorm) Shift() float64 { return b.Beta - b.Mean*b.Scale() }

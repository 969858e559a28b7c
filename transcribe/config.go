package transcribe

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/algo-pitch/dsp/cqt"
	"github.com/cwbudde/algo-pitch/nn"
)

// Config holds everything needed to build a Model.
type Config struct {
	Constants cqt.Constants `json:"constants"`
	BatchNorm cqt.BatchNorm `json:"batch_norm"`

	// WindowSamples is the length of each inference window.
	WindowSamples int `json:"window_samples"`
	// OverlapFrames is the number of frames shared by adjacent windows.
	// Half of it is trimmed from each side of every window's output.
	OverlapFrames int `json:"overlap_frames"`

	// ModelDir holds the weight documents and, unless DesignKernels is
	// set, kernel.npy and lowpass_filter.npy.
	ModelDir   string              `json:"model_dir"`
	ModelFiles map[nn.Stage]string `json:"model_files,omitempty"`

	DesignKernels bool               `json:"design_kernels"`
	Workers       int                `json:"workers"`
	Decimation    cqt.DecimationMode `json:"decimation"`
	LenientLayers bool               `json:"lenient_layers"`
}

// DefaultConfig returns the configuration of the shipped models.
func DefaultConfig() Config {
	return Config{
		Constants:     cqt.DefaultConstants(),
		BatchNorm:     cqt.DefaultBatchNorm(),
		WindowSamples: 43844,
		OverlapFrames: 30,
		ModelDir:      "model",
		ModelFiles:    nn.DefaultModelFiles(),
		Workers:       cqt.DefaultWorkers,
		Decimation:    cqt.DecimateChained,
	}
}

// LoadConfig reads a JSON document over DefaultConfig; absent fields keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Hop is the frame hop in samples.
func (c Config) Hop() int { return c.Constants.Hop }

// WindowHop is the distance between the starts of adjacent windows.
func (c Config) WindowHop() int { return c.WindowSamples - c.OverlapFrames*c.Constants.Hop }

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	k := c.Constants
	switch {
	case k.SampleRate <= 0 || k.Hop <= 0:
		return fmt.Errorf("%w: sample rate %d, hop %d", ErrConfig, k.SampleRate, k.Hop)
	case k.MinFreq <= 0:
		return fmt.Errorf("%w: min frequency %g", ErrConfig, k.MinFreq)
	case k.SemitonesPerOctave <= 0 || k.Semitones <= 0 || k.ContourBinsPerSemitone <= 0:
		return fmt.Errorf("%w: bin layout %d/%d/%d", ErrConfig, k.SemitonesPerOctave, k.Semitones, k.ContourBinsPerSemitone)
	case k.Harmonics < 1 || k.ContourOutputBins < 1:
		return fmt.Errorf("%w: %d harmonics, %d output bins", ErrConfig, k.Harmonics, k.ContourOutputBins)
	case c.OverlapFrames < 0 || c.OverlapFrames%2 != 0:
		return fmt.Errorf("%w: overlap frames %d must be even and non-negative", ErrConfig, c.OverlapFrames)
	case c.WindowHop() <= 0:
		return fmt.Errorf("%w: window of %d samples does not exceed overlap of %d", ErrConfig, c.WindowSamples, c.OverlapFrames*k.Hop)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d", ErrConfig, c.Workers)
	}

	for _, s := range nn.Stages() {
		if c.ModelFiles != nil && c.ModelFiles[s] == "" {
			return fmt.Errorf("%w: no weight file for stage %q", ErrConfig, s)
		}
	}

	return nil
}

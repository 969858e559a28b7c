// Package pcm reads WAV recordings into mono float64 samples at the rate the
// transcriber expects.
package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-pitch/dsp/resample"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV reports a file that is not a readable PCM WAV.
var ErrInvalidWAV = errors.New("pcm: invalid wav")

// ReadWAVMono reads the WAV file at path, averages its channels and scales
// samples to [-1, 1). It returns the samples and the file's sample rate.
func ReadWAVMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	samples, rate, err := DecodeWAVMono(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return samples, rate, nil
}

// DecodeWAVMono is ReadWAVMono on an open stream.
func DecodeWAVMono(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, 0, fmt.Errorf("%w: bit depth %d", ErrInvalidWAV, depth)
	}
	full := float64(int64(1) << (depth - 1))

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range ch {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch) / full
	}

	return out, buf.Format.SampleRate, nil
}

// Conform resamples samples from one rate to another. Equal rates return a
// copy.
func Conform(samples []float64, from, to int) ([]float64, error) {
	return resample.Convert(samples, float64(from), float64(to), resample.WithQuality(resample.QualityBest))
}

// Load reads a WAV file as mono and resamples it to rate.
func Load(path string, rate int) ([]float64, error) {
	samples, from, err := ReadWAVMono(path)
	if err != nil {
		return nil, err
	}
	return Conform(samples, from, rate)
}

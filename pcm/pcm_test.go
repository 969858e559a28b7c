package pcm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-pitch/internal/testutil"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadWAVMonoAveragesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 22050, 2, []int{16384, 0, -16384, -16384, 8192, 8192})

	got, rate, err := ReadWAVMono(path)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 22050 {
		t.Fatalf("rate = %d", rate)
	}
	testutil.RequireSliceNearlyEqual(t, got, []float64{0.25, -0.5, 0.25}, 1e-12)
}

func TestReadWAVMonoErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := ReadWAVMono(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("not a riff file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWAVMono(junk); !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("expected ErrInvalidWAV, got %v", err)
	}
}

func TestLoadResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := make([]int, 44100)
	for i, v := range testutil.DeterministicSine(440, 44100, 16000, len(data)) {
		data[i] = int(v)
	}
	writeWAV(t, path, 44100, 1, data)

	got, err := Load(path, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) < 22000 || len(got) > 22100 {
		t.Fatalf("resampled length %d, want about 22050", len(got))
	}
	testutil.RequireFinite(t, got)
}

func TestConformSameRateCopies(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Conform(in, 22050, 22050)
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 9
	if in[0] != 1 {
		t.Fatal("Conform aliased its input")
	}
}

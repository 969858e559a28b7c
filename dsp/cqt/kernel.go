package cqt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Asset file names inside a kernel directory.
const (
	KernelFile  = "kernel.npy"
	LowpassFile = "lowpass_filter.npy"
)

// KernelStore holds the top-octave projection kernel and the anti-aliasing
// filter used between octaves. It is read-only once built and may be shared
// by any number of engines.
type KernelStore struct {
	// Real and Imag are TopOctaveBins x FFTWindowSize.
	Real *mat.Dense
	Imag *mat.Dense

	Lowpass []float64
}

// Validate checks the store against the geometry in p.
func (s *KernelStore) Validate(p Params) error {
	if s == nil || s.Real == nil || s.Imag == nil {
		return fmt.Errorf("%w: kernel store is incomplete", ErrShape)
	}

	wantR, wantC := p.TopOctaveBins(), p.FFTWindowSize
	if r, c := s.Real.Dims(); r != wantR || c != wantC {
		return fmt.Errorf("%w: kernel is %dx%d, want %dx%d", ErrShape, r, c, wantR, wantC)
	}
	if r, c := s.Imag.Dims(); r != wantR || c != wantC {
		return fmt.Errorf("%w: imaginary kernel is %dx%d, want %dx%d", ErrShape, r, c, wantR, wantC)
	}
	if len(s.Lowpass) == 0 {
		return fmt.Errorf("%w: empty low-pass filter", ErrShape)
	}

	return nil
}

// LoadKernelStore reads kernel.npy (complex, [bins, window]) and
// lowpass_filter.npy (real, [taps]) from dir and validates them against p.
func LoadKernelStore(dir string, p Params) (*KernelStore, error) {
	re, im, err := readComplexMatrix(filepath.Join(dir, KernelFile))
	if err != nil {
		return nil, err
	}

	lowpass, err := readVector(filepath.Join(dir, LowpassFile))
	if err != nil {
		return nil, err
	}

	store := &KernelStore{Real: re, Imag: im, Lowpass: lowpass}
	if err := store.Validate(p); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, dir, err)
	}

	return store, nil
}

func openNpy(path string) (*npyio.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAssetLoad, err)
	}

	r, err := npyio.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, path, err)
	}

	return r, f, nil
}

func readComplexMatrix(path string) (re, im *mat.Dense, err error) {
	r, f, err := openNpy(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	shape := r.Header.Descr.Shape
	if len(shape) != 2 || shape[0] <= 0 || shape[1] <= 0 {
		return nil, nil, fmt.Errorf("%w: %s: want a non-empty 2-D array, got shape %v", ErrAssetLoad, path, shape)
	}
	rows, cols := shape[0], shape[1]

	var data []complex128
	switch r.Header.Descr.Type {
	case "<c8":
		var v []complex64
		if err := r.Read(&v); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, path, err)
		}
		data = make([]complex128, len(v))
		for i, c := range v {
			data[i] = complex128(c)
		}
	case "<c16":
		if err := r.Read(&data); err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, path, err)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s: unsupported dtype %q", ErrAssetLoad, path, r.Header.Descr.Type)
	}

	if len(data) != rows*cols {
		return nil, nil, fmt.Errorf("%w: %s: %d values for shape %v", ErrAssetLoad, path, len(data), shape)
	}

	re = mat.NewDense(rows, cols, nil)
	im = mat.NewDense(rows, cols, nil)
	fortran := r.Header.Descr.Fortran
	for i := range rows {
		for j := range cols {
			v := data[i*cols+j]
			if fortran {
				v = data[j*rows+i]
			}
			re.Set(i, j, real(v))
			im.Set(i, j, imag(v))
		}
	}

	return re, im, nil
}

func readVector(path string) ([]float64, error) {
	r, f, err := openNpy(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := 1
	for _, d := range r.Header.Descr.Shape {
		n *= d
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %s: empty array", ErrAssetLoad, path)
	}

	var out []float64
	switch r.Header.Descr.Type {
	case "<f4":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, path, err)
		}
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case "<f8":
		if err := r.Read(&out); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetLoad, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: unsupported dtype %q", ErrAssetLoad, path, r.Header.Descr.Type)
	}

	if len(out) != n {
		return nil, fmt.Errorf("%w: %s: %d values for shape %v", ErrAssetLoad, path, len(out), r.Header.Descr.Shape)
	}

	return out, nil
}

// Command cqtinfo prints the constant-Q transform geometry and, optionally,
// statistics of the kernel assets.
//
// Usage:
//
//	cqtinfo [flags]
//
// Examples:
//
//	cqtinfo
//	cqtinfo -contour
//	cqtinfo -contour -assets ./model
//	cqtinfo -design
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-pitch/dsp/cqt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func main() {
	contour := flag.Bool("contour", false, "use the contour resolution (3 bins per semitone)")
	assets := flag.String("assets", "", "directory holding kernel.npy and lowpass_filter.npy")
	design := flag.Bool("design", false, "design the kernel and lowpass filter instead of loading them")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cqtinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints constant-Q transform parameters and kernel statistics.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	p := cqt.NewParams(cqt.DefaultConstants(), *contour)
	if err := printParams(os.Stdout, p); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var (
		store *cqt.KernelStore
		err   error
	)
	switch {
	case *design:
		store, err = cqt.DesignKernelStore(p)
	case *assets != "":
		store, err = cqt.LoadKernelStore(*assets, p)
	default:
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	if err := printStore(os.Stdout, p, store); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printParams(w io.Writer, p cqt.Params) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value string
	}{
		{"sample rate", fmt.Sprintf("%d Hz", p.SampleRate)},
		{"bins per octave", fmt.Sprint(p.BinsPerOctave)},
		{"bins", fmt.Sprint(p.NBins)},
		{"octaves", fmt.Sprint(p.NOctaves)},
		{"frequency range", fmt.Sprintf("%.2f - %.2f Hz", p.FreqMin, p.FreqMax)},
		{"top octave", fmt.Sprintf("%.2f - %.2f Hz", p.FMinT, p.FMaxT)},
		{"quality factor", fmt.Sprintf("%.4f", p.QualityFactor)},
		{"window", fmt.Sprint(p.FFTWindowSize)},
		{"hop", fmt.Sprint(p.SamplesPerFrame)},
		{"frames per second", fmt.Sprint(p.FramesPerSecond)},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r.name, r.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printStore(w io.Writer, p cqt.Params, s *cqt.KernelStore) error {
	rows, cols := s.Real.Dims()

	l1 := make([]float64, rows)
	peak := make([]float64, rows)
	for i := range rows {
		re, im := s.Real.RawRowView(i), s.Imag.RawRowView(i)
		for j := range cols {
			a := cmplx.Abs(complex(re[j], im[j]))
			l1[i] += a
			peak[i] = math.Max(peak[i], a)
		}
	}
	mean, std := stat.MeanStdDev(l1, nil)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "kernel\t%d x %d\n", rows, cols)
	fmt.Fprintf(tw, "row L1 norm\tmean %.6f  std %.2g\n", mean, std)
	fmt.Fprintf(tw, "row peak magnitude\t%.3g - %.3g\n", floats.Min(peak), floats.Max(peak))
	fmt.Fprintf(tw, "lowest kernel\t%d samples at %.2f Hz\n", p.KernelLength(p.FMinT), p.FMinT)
	fmt.Fprintf(tw, "lowpass taps\t%d\n", len(s.Lowpass))
	fmt.Fprintf(tw, "lowpass DC gain\t%.6f\n", floats.Sum(s.Lowpass))
	return tw.Flush()
}

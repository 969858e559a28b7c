package cqt

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-pitch/dsp/conv"
	"github.com/cwbudde/algo-pitch/logging"
	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultWorkers is the size of the frame and octave worker pools.
const DefaultWorkers = 4

// powerFloor keeps log10 finite on silent bins.
const powerFloor = 1e-10

type config struct {
	workers   int
	mode      DecimationMode
	batchNorm BatchNorm
	harmonics []float64
	stackBins int
	logger    logging.Logger
}

// Option configures an Engine.
type Option func(*config)

// WithWorkers sets the worker pool size. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDecimation selects the decimation chain mode.
func WithDecimation(m DecimationMode) Option {
	return func(c *config) { c.mode = m }
}

// WithBatchNorm replaces the batch-norm constants used by Compute.
func WithBatchNorm(b BatchNorm) Option {
	return func(c *config) { c.batchNorm = b }
}

// WithHarmonicStack sets the harmonic ratios and output bin count used by
// HarmonicCQT.
func WithHarmonicStack(harmonics []float64, outputBins int) Option {
	return func(c *config) {
		c.harmonics = append([]float64(nil), harmonics...)
		c.stackBins = outputBins
	}
}

// WithLogger sets the logger. Nil falls back to the global logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Engine computes constant-Q spectra for one Params geometry. The kernel
// store and derived tables are read-only, so one Engine may serve
// concurrent callers.
type Engine struct {
	params    Params
	store     *KernelStore
	decimator *conv.Decimator

	// lengths[i] = sqrt(ceil(Q*SR/f_i)), indexed like the stacked bin axis.
	lengths []float64

	workers   int
	mode      DecimationMode
	batchNorm BatchNorm
	harmonics []float64
	stackBins int
	logger    logging.Logger
}

// New builds an engine over a validated kernel store.
func New(p Params, store *KernelStore, opts ...Option) (*Engine, error) {
	c := DefaultConstants()
	cfg := config{
		workers:   DefaultWorkers,
		batchNorm: DefaultBatchNorm(),
		harmonics: Harmonics(c.Harmonics),
		stackBins: c.ContourOutputBins,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := store.Validate(p); err != nil {
		return nil, err
	}

	decimator, err := conv.NewDecimator(store.Lowpass, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	lengths := make([]float64, p.NBins)
	for i := range lengths {
		lengths[i] = math.Sqrt(float64(p.KernelLength(p.BinFrequency(i))))
	}

	e := &Engine{
		params:    p,
		store:     store,
		decimator: decimator,
		lengths:   lengths,
		workers:   cfg.workers,
		mode:      cfg.mode,
		batchNorm: cfg.batchNorm,
		harmonics: cfg.harmonics,
		stackBins: cfg.stackBins,
		logger:    logging.OrGlobal(cfg.logger).WithFields(logging.Fields{"component": "cqt"}),
	}

	e.logger.Debug("engine ready", logging.Fields{
		"bins":       p.NBins,
		"octaves":    p.NOctaves,
		"window":     p.FFTWindowSize,
		"decimation": cfg.mode.String(),
	})

	return e, nil
}

// Open loads the kernel assets from dir and builds an engine.
func Open(dir string, p Params, opts ...Option) (*Engine, error) {
	store, err := LoadKernelStore(dir, p)
	if err != nil {
		return nil, err
	}
	return New(p, store, opts...)
}

// Params returns the engine geometry.
func (e *Engine) Params() Params { return e.params }

// Forward projects every frame of segment onto the kernel. The result has
// floor(len/hop)+1 rows and TopOctaveBins columns.
func (e *Engine) Forward(segment []float64, hop int) (*mat.CDense, error) {
	if len(segment) == 0 {
		return nil, fmt.Errorf("%w: empty segment", ErrInvalidInput)
	}
	if hop < 1 {
		return nil, fmt.Errorf("%w: hop %d", ErrInvalidInput, hop)
	}

	width := e.params.FFTWindowSize
	bins := e.params.TopOctaveBins()
	padded := reflectPad(segment, width/2)
	nFrames := len(segment)/hop + 1

	rows := make([][]complex128, nFrames)
	jobs := make(chan int, nFrames)

	var wg sync.WaitGroup
	for range min(e.workers, nFrames) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				frame := padded[i*hop : i*hop+width]
				row := make([]complex128, bins)
				for k := range row {
					re := floats.Dot(frame, e.store.Real.RawRowView(k))
					im := floats.Dot(frame, e.store.Imag.RawRowView(k))
					row[k] = complex(re, im)
				}
				rows[i] = row
			}
		}()
	}

	for i := range nFrames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := mat.NewCDense(nFrames, bins, nil)
	for i, row := range rows {
		for k, v := range row {
			out.Set(i, k, v)
		}
	}

	return out, nil
}

// spectrum is the stacked complex spectrum in frame-major order:
// re[f][b], im[f][b] for frame f and stacked bin b.
type spectrum struct {
	re, im [][]float64
}

// assemble runs the octave cascade and scatters every octave into its rows.
func (e *Engine) assemble(audio []float64) (*spectrum, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}

	p := e.params
	top := p.TopOctaveBins()

	ranges, err := octaveRanges(p.NBins, top, p.NOctaves)
	if err != nil {
		return nil, err
	}

	inputs, err := e.octaveInputs(audio)
	if err != nil {
		return nil, err
	}

	outs := make([]*mat.CDense, p.NOctaves)
	errs := make([]error, p.NOctaves)
	jobs := make(chan int, p.NOctaves)

	var wg sync.WaitGroup
	for range min(e.workers, p.NOctaves) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outs[i], errs[i] = e.Forward(inputs[i].signal, inputs[i].hop)
			}
		}()
	}
	for i := range p.NOctaves {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	nFrames, _ := outs[0].Dims()
	s := &spectrum{
		re: make([][]float64, nFrames),
		im: make([][]float64, nFrames),
	}
	for f := range nFrames {
		s.re[f] = make([]float64, p.NBins)
		s.im[f] = make([]float64, p.NBins)
	}

	for _, r := range ranges {
		octFrames, _ := outs[r.octave].Dims()
		if octFrames != nFrames {
			e.logger.Debug("octave frame count differs", logging.Fields{
				"octave": r.octave,
				"frames": octFrames,
				"want":   nFrames,
			})
		}
		for f := range min(octFrames, nFrames) {
			for j := range r.n {
				v := outs[r.octave].At(f, r.src+j)
				s.re[f][r.dst+j] = real(v)
				s.im[f][r.dst+j] = imag(v)
			}
		}
	}

	return s, nil
}

// Compute returns the NBins x frames log-power spectrum of audio, min-max
// rescaled to [0, 1]. With batchNorm the engine's BatchNorm is applied last.
func (e *Engine) Compute(audio []float64, batchNorm bool) (*mat.Dense, error) {
	s, err := e.assemble(audio)
	if err != nil {
		return nil, err
	}

	nBins := e.params.NBins
	nFrames := len(s.re)

	out := mat.NewDense(nBins, nFrames, nil)
	power := make([]float64, nBins)
	for f := range nFrames {
		vecmath.MulBlockInPlace(s.re[f], e.lengths)
		vecmath.MulBlockInPlace(s.im[f], e.lengths)
		vecmath.Power(power, s.re[f], s.im[f])
		for b, v := range power {
			out.Set(b, f, 10*math.Log10(v+powerFloor))
		}
	}

	data := out.RawMatrix().Data
	lo, hi := floats.Min(data), floats.Max(data)
	if span := hi - lo; span > 0 {
		for i, v := range data {
			data[i] = (v - lo) / span
		}
	} else {
		// Flat input, e.g. silence.
		for i := range data {
			data[i] = 0
		}
	}

	if batchNorm {
		floats.Scale(e.batchNorm.Scale(), data)
		floats.AddConst(e.batchNorm.Shift(), data)
	}

	e.logger.Debug("cqt computed", logging.Fields{"samples": len(audio), "frames": nFrames})

	return out, nil
}

// HarmonicCQT computes the batch-normalized spectrum of audio and stacks it
// with the engine's harmonic ratios. Each result is frames x output bins.
func (e *Engine) HarmonicCQT(audio []float64) ([]*mat.Dense, error) {
	spec, err := e.Compute(audio, true)
	if err != nil {
		return nil, err
	}
	return HarmonicStack(spec, e.params.BinsPerSemitone, e.harmonics, e.stackBins)
}

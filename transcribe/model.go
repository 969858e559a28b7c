package transcribe

import (
	"fmt"

	"github.com/cwbudde/algo-pitch/dsp/cqt"
	"github.com/cwbudde/algo-pitch/logging"
	"github.com/cwbudde/algo-pitch/nn"
	"gonum.org/v1/gonum/mat"
)

// Frontend turns one audio window into the model input tensor.
type Frontend interface {
	HarmonicStack(window []float64) (*nn.Tensor, error)
}

// Network is one sub-model. *nn.Graph implements it.
type Network interface {
	Forward(in *nn.Tensor) (*nn.Tensor, error)
}

// State is the position of a Model in one transcription.
type State int

const (
	StateIdle State = iota
	StateWindowing
	StateAccumulating
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWindowing:
		return "windowing"
	case StateAccumulating:
		return "accumulating"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Posteriorgrams are the whole-signal model outputs, frames x bins each.
type Posteriorgrams struct {
	Contour *mat.Dense
	Note    *mat.Dense
	Onset   *mat.Dense
	Frames  int
}

type engineFrontend struct {
	engine *cqt.Engine
}

// NewFrontend adapts a constant-Q engine to the Frontend interface.
func NewFrontend(e *cqt.Engine) Frontend {
	return engineFrontend{engine: e}
}

func (f engineFrontend) HarmonicStack(window []float64) (*nn.Tensor, error) {
	stack, err := f.engine.HarmonicCQT(window)
	if err != nil {
		return nil, err
	}
	return nn.Stack(stack...)
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. Nil falls back to the global logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// Model is the inference orchestrator. It owns the per-call output buffers;
// use one Model per goroutine.
type Model struct {
	cfg      Config
	frontend Frontend

	contour  Network
	note     Network
	onsetIn  Network
	onsetOut Network

	logger logging.Logger

	state    State
	audioLen int
	yp       []*mat.Dense
	yn       []*mat.Dense
	yo       []*mat.Dense
}

// NewModel wires a frontend and four sub-models into a Model.
func NewModel(cfg Config, frontend Frontend, contour, note, onsetIn, onsetOut Network, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if frontend == nil || contour == nil || note == nil || onsetIn == nil || onsetOut == nil {
		return nil, fmt.Errorf("%w: frontend and all four networks are required", ErrConfig)
	}

	m := &Model{
		cfg:      cfg,
		frontend: frontend,
		contour:  contour,
		note:     note,
		onsetIn:  onsetIn,
		onsetOut: onsetOut,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrGlobal(m.logger).WithFields(logging.Fields{"component": "transcribe"})

	return m, nil
}

// Open builds the constant-Q engine and loads the four graphs named in cfg.
func Open(cfg Config, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}
	logger := logging.OrGlobal(m.logger)

	p := cqt.NewParams(cfg.Constants, true)
	engineOpts := []cqt.Option{
		cqt.WithWorkers(cfg.Workers),
		cqt.WithDecimation(cfg.Decimation),
		cqt.WithBatchNorm(cfg.BatchNorm),
		cqt.WithHarmonicStack(cqt.Harmonics(cfg.Constants.Harmonics), cfg.Constants.ContourOutputBins),
		cqt.WithLogger(logger),
	}

	var (
		engine *cqt.Engine
		err    error
	)
	if cfg.DesignKernels {
		var store *cqt.KernelStore
		store, err = cqt.DesignKernelStore(p)
		if err == nil {
			engine, err = cqt.New(p, store, engineOpts...)
		}
	} else {
		engine, err = cqt.Open(cfg.ModelDir, p, engineOpts...)
	}
	if err != nil {
		return nil, err
	}

	graphOpts := []nn.Option{nn.WithLogger(logger)}
	if cfg.LenientLayers {
		graphOpts = append(graphOpts, nn.WithLenientLayers())
	}

	graphs := make(map[nn.Stage]*nn.Graph, 4)
	for _, stage := range nn.Stages() {
		g, err := nn.LoadStage(cfg.ModelDir, stage, cfg.ModelFiles, graphOpts...)
		if err != nil {
			return nil, err
		}
		graphs[stage] = g
		logger.Info("loaded model", logging.Fields{"stage": string(stage), "layers": g.Len()})
	}

	return NewModel(cfg, NewFrontend(engine),
		graphs[nn.StageContour], graphs[nn.StageNote],
		graphs[nn.StageOnsetInput], graphs[nn.StageOnsetOutput], opts...)
}

// Config returns the model configuration.
func (m *Model) Config() Config { return m.cfg }

// State returns the current state.
func (m *Model) State() State { return m.state }

// Reset clears the output buffers and returns to StateIdle.
func (m *Model) Reset() {
	m.state = StateIdle
	m.audioLen = 0
	m.yp = m.yp[:0]
	m.yn = m.yn[:0]
	m.yo = m.yo[:0]
}

// Transcribe runs the whole pipeline over audio, sampled at
// Constants.SampleRate. Any failure resets the model and is returned.
func (m *Model) Transcribe(audio []float64) (*Posteriorgrams, error) {
	m.Reset()
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	m.audioLen = len(audio)

	windows := m.cfg.windows(audio)
	m.logger.Debug("transcribing", logging.Fields{"samples": len(audio), "windows": len(windows)})

	for i, w := range windows {
		if err := m.InferenceFrame(w); err != nil {
			m.Reset()
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
	}

	out, err := m.Output()
	if err != nil {
		m.Reset()
		return nil, err
	}

	return out, nil
}

// InferenceFrame runs one window through the pipeline and appends its three
// outputs to the buffers.
func (m *Model) InferenceFrame(window []float64) error {
	if m.state == StateFinalized {
		return fmt.Errorf("%w: model is finalized, call Reset", ErrState)
	}
	m.state = StateWindowing

	stack, err := m.frontend.HarmonicStack(window)
	if err != nil {
		return err
	}

	contourOut, err := m.contour.Forward(stack)
	if err != nil {
		return fmt.Errorf("contour: %w", err)
	}
	noteOut, err := m.note.Forward(contourOut)
	if err != nil {
		return fmt.Errorf("note: %w", err)
	}
	onsetIn, err := m.onsetIn.Forward(stack)
	if err != nil {
		return fmt.Errorf("onset input: %w", err)
	}

	noteFirst := &nn.Tensor{Channels: 1, Rows: noteOut.Rows, Cols: noteOut.Cols, Data: noteOut.ChannelData(0)}
	joined, err := nn.Concat(noteFirst, onsetIn)
	if err != nil {
		return fmt.Errorf("%w: note and onset outputs: %w", ErrShape, err)
	}
	onsetOut, err := m.onsetOut.Forward(joined)
	if err != nil {
		return fmt.Errorf("onset output: %w", err)
	}

	m.yp = append(m.yp, firstChannel(contourOut))
	m.yn = append(m.yn, firstChannel(noteOut))
	m.yo = append(m.yo, firstChannel(onsetOut))
	m.state = StateAccumulating

	return nil
}

func firstChannel(t *nn.Tensor) *mat.Dense {
	return mat.DenseCopyOf(t.Channel(0))
}

// Output concatenates the buffered window outputs and trims them to
// ceil(audioLen/hop) frames. Windows fed through InferenceFrame without
// Transcribe have no known audio length and are returned untrimmed.
func (m *Model) Output() (*Posteriorgrams, error) {
	if m.state != StateAccumulating && m.state != StateFinalized {
		return nil, fmt.Errorf("%w: no window has been processed (state %s)", ErrState, m.state)
	}

	frames := -1
	if m.audioLen > 0 {
		frames = m.cfg.Frames(m.audioLen)
	}

	contour, err := m.concat(m.yp, frames)
	if err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}
	note, err := m.concat(m.yn, frames)
	if err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	onset, err := m.concat(m.yo, frames)
	if err != nil {
		return nil, fmt.Errorf("onset: %w", err)
	}

	frames, _ = contour.Dims()
	m.state = StateFinalized
	m.logger.Debug("transcription finalized", logging.Fields{"frames": frames, "windows": len(m.yp)})

	return &Posteriorgrams{Contour: contour, Note: note, Onset: onset, Frames: frames}, nil
}

// concat drops half the overlap from both ends of every window, joins the
// windows in order and keeps the first frames rows (all of them when frames
// is negative).
func (m *Model) concat(parts []*mat.Dense, frames int) (*mat.Dense, error) {
	trim := m.cfg.OverlapFrames / 2

	_, cols := parts[0].Dims()
	kept := make([]*mat.Dense, 0, len(parts))
	total := 0
	for i, p := range parts {
		rows, c := p.Dims()
		if c != cols {
			return nil, fmt.Errorf("%w: window %d has %d bins, want %d", ErrShape, i, c, cols)
		}
		if rows <= 2*trim {
			return nil, fmt.Errorf("%w: window %d has %d frames, overlap trims %d", ErrShape, i, rows, 2*trim)
		}
		kept = append(kept, p.Slice(trim, rows-trim, 0, cols).(*mat.Dense))
		total += rows - 2*trim
	}

	if frames < 0 {
		frames = total
	}
	if total < frames {
		return nil, fmt.Errorf("%w: %d frames available, need %d", ErrShape, total, frames)
	}

	out := mat.NewDense(frames, cols, nil)
	row := 0
	for _, k := range kept {
		rows, _ := k.Dims()
		n := min(rows, frames-row)
		if n <= 0 {
			break
		}
		out.Slice(row, row+n, 0, cols).(*mat.Dense).Copy(k.Slice(0, n, 0, cols))
		row += n
	}

	return out, nil
}

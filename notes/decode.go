package notes

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-pitch/dsp/cqt"
	"github.com/cwbudde/algo-pitch/transcribe"
	"gonum.org/v1/gonum/mat"
)

// Options control note decoding.
type Options struct {
	OnsetThreshold float64
	FrameThreshold float64

	// MinNoteFrames is the shortest note kept, in frames (exclusive).
	MinNoteFrames int
	// EnergyTolerance is the number of consecutive frames below
	// FrameThreshold that end a note.
	EnergyTolerance int

	InferOnsets  bool
	MelodiaTrick bool

	// MinMIDI is the MIDI pitch of the first posteriorgram column.
	MinMIDI int
	// MinFreq and MaxFreq restrict the pitch range in Hz. Zero disables.
	MinFreq, MaxFreq float64

	// HopSeconds is the duration of one frame.
	HopSeconds float64
}

// DefaultOptions returns the decoding defaults for the given transform
// constants.
func DefaultOptions(c cqt.Constants) Options {
	return Options{
		OnsetThreshold:  0.5,
		FrameThreshold:  0.3,
		MinNoteFrames:   11,
		EnergyTolerance: 11,
		InferOnsets:     true,
		MelodiaTrick:    true,
		MinMIDI:         21,
		HopSeconds:      float64(c.Hop) / float64(c.SampleRate),
	}
}

func (o Options) validate() error {
	switch {
	case o.HopSeconds <= 0:
		return fmt.Errorf("%w: hop %g s", ErrOptions, o.HopSeconds)
	case o.EnergyTolerance < 1:
		return fmt.Errorf("%w: energy tolerance %d", ErrOptions, o.EnergyTolerance)
	case o.MinNoteFrames < 0:
		return fmt.Errorf("%w: minimum note length %d", ErrOptions, o.MinNoteFrames)
	case o.MinMIDI < 0 || o.MinMIDI > 127:
		return fmt.Errorf("%w: MIDI offset %d", ErrOptions, o.MinMIDI)
	}
	return nil
}

// Event is one decoded note. EndFrame is exclusive.
type Event struct {
	Pitch      int     `json:"pitch"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Amplitude  float64 `json:"amplitude"`
}

// Velocity maps the amplitude to a MIDI velocity in [1, 127].
func (e Event) Velocity() uint8 {
	v := math.Round(127 * e.Amplitude)
	return uint8(min(max(v, 1), 127))
}

// Decode extracts note events from the note and onset posteriorgrams of p.
// Events are sorted by start time, then pitch.
func Decode(p *transcribe.Posteriorgrams, opts Options) ([]Event, error) {
	if p == nil || p.Note == nil || p.Onset == nil {
		return nil, fmt.Errorf("%w: missing posteriorgram", ErrShape)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	nr, nc := p.Note.Dims()
	or, oc := p.Onset.Dims()
	if nr != or || nc != oc {
		return nil, fmt.Errorf("%w: note %dx%d, onset %dx%d", ErrShape, nr, nc, or, oc)
	}

	frames := mat.DenseCopyOf(p.Note)
	onsets := mat.DenseCopyOf(p.Onset)
	opts.constrain(frames, onsets)

	if opts.InferOnsets {
		onsets = inferOnsets(onsets, frames)
	}

	d := decoder{opts: opts, frames: frames, energy: mat.DenseCopyOf(frames)}
	d.trackOnsets(onsets)
	if opts.MelodiaTrick {
		d.trackRemaining()
	}

	slices.SortStableFunc(d.events, func(a, b Event) int {
		if c := cmp.Compare(a.StartFrame, b.StartFrame); c != 0 {
			return c
		}
		return cmp.Compare(a.Pitch, b.Pitch)
	})

	return d.events, nil
}

// constrain zeroes the columns outside [MinFreq, MaxFreq].
func (o Options) constrain(frames, onsets *mat.Dense) {
	rows, cols := frames.Dims()
	for c := range cols {
		f := midiToHz(o.MinMIDI + c)
		if (o.MinFreq > 0 && f < o.MinFreq) || (o.MaxFreq > 0 && f > o.MaxFreq) {
			for r := range rows {
				frames.Set(r, c, 0)
				onsets.Set(r, c, 0)
			}
		}
	}
}

func midiToHz(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}

// inferOnsets adds onsets where the note posteriorgram rises sharply. The
// rise is the smaller of the one- and two-frame differences, scaled so its
// peak matches the strongest onset.
func inferOnsets(onsets, frames *mat.Dense) *mat.Dense {
	const nDiff = 2

	rows, cols := frames.Dims()
	diff := mat.NewDense(rows, cols, nil)
	for r := nDiff; r < rows; r++ {
		for c := range cols {
			v := math.Inf(1)
			for n := 1; n <= nDiff; n++ {
				v = min(v, frames.At(r, c)-frames.At(r-n, c))
			}
			diff.Set(r, c, max(v, 0))
		}
	}

	peak := mat.Max(diff)
	if peak <= 0 {
		return onsets
	}
	diff.Scale(mat.Max(onsets)/peak, diff)

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(r, c int, v float64) float64 {
		return max(v, onsets.At(r, c))
	}, diff)
	return out
}

type decoder struct {
	opts   Options
	frames *mat.Dense
	energy *mat.Dense
	events []Event
}

// trackOnsets starts a note at every onset peak, latest first, and follows it
// through the remaining energy.
func (d *decoder) trackOnsets(onsets *mat.Dense) {
	rows, cols := onsets.Dims()

	type peak struct{ frame, bin int }
	var peaks []peak
	for r := 1; r < rows-1; r++ {
		for c := range cols {
			v := onsets.At(r, c)
			if v >= d.opts.OnsetThreshold && v > onsets.At(r-1, c) && v > onsets.At(r+1, c) {
				peaks = append(peaks, peak{r, c})
			}
		}
	}

	for i := len(peaks) - 1; i >= 0; i-- {
		start, bin := peaks[i].frame, peaks[i].bin
		if start >= rows-1 {
			continue
		}

		end, k := start+1, 0
		for end < rows-1 && k < d.opts.EnergyTolerance {
			if d.energy.At(end, bin) < d.opts.FrameThreshold {
				k++
			} else {
				k = 0
			}
			end++
		}
		end -= k

		if end-start <= d.opts.MinNoteFrames {
			continue
		}

		for r := start; r < end; r++ {
			d.clear(r, bin)
		}
		d.emit(start, end, bin)
	}
}

// trackRemaining repeatedly takes the strongest leftover energy peak and
// extends it in both directions.
func (d *decoder) trackRemaining() {
	rows, _ := d.energy.Dims()
	tol, thresh := d.opts.EnergyTolerance, d.opts.FrameThreshold

	for {
		mid, bin, v := argmax(d.energy)
		if v <= thresh {
			return
		}
		d.energy.Set(mid, bin, 0)

		i, k := mid+1, 0
		for i < rows-1 && k < tol {
			if d.energy.At(i, bin) < thresh {
				k++
			} else {
				k = 0
			}
			d.clear(i, bin)
			i++
		}
		end := i - 1 - k

		i, k = mid-1, 0
		for i > 0 && k < tol {
			if d.energy.At(i, bin) < thresh {
				k++
			} else {
				k = 0
			}
			d.clear(i, bin)
			i--
		}
		start := i + 1 + k

		if end-start <= d.opts.MinNoteFrames {
			continue
		}
		d.emit(start, end, bin)
	}
}

// clear zeroes the energy at bin and its two neighbours.
func (d *decoder) clear(r, bin int) {
	_, cols := d.energy.Dims()
	for c := max(bin-1, 0); c <= min(bin+1, cols-1); c++ {
		d.energy.Set(r, c, 0)
	}
}

func (d *decoder) emit(start, end, bin int) {
	var sum float64
	for r := start; r < end; r++ {
		sum += d.frames.At(r, bin)
	}
	hop := d.opts.HopSeconds
	d.events = append(d.events, Event{
		Pitch:      d.opts.MinMIDI + bin,
		StartFrame: start,
		EndFrame:   end,
		Start:      float64(start) * hop,
		End:        float64(end) * hop,
		Amplitude:  sum / float64(end-start),
	})
}

func argmax(m *mat.Dense) (row, col int, v float64) {
	rows, _ := m.Dims()
	v = math.Inf(-1)
	for r := range rows {
		for c, x := range m.RawRowView(r) {
			if x > v {
				row, col, v = r, c, x
			}
		}
	}
	return row, col, v
}

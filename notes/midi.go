package notes

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerQuarter is the time resolution of written files.
const TicksPerQuarter = 480

// DefaultBPM is the tempo written when none is given.
const DefaultBPM = 120.0

type midiEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// WriteMIDI writes events as a single-track Standard MIDI File on channel 0.
// Event times are converted to ticks at the given tempo; bpm <= 0 selects
// DefaultBPM.
func WriteMIDI(w io.Writer, events []Event, bpm float64) error {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	ticksPerSecond := bpm / 60 * TicksPerQuarter

	toTick := func(sec float64) uint32 {
		return uint32(math.Round(max(sec, 0) * ticksPerSecond))
	}

	msgs := make([]midiEvent, 0, 2*len(events))
	for i, e := range events {
		if e.Pitch < 0 || e.Pitch > 127 {
			return fmt.Errorf("%w: event %d has pitch %d", ErrOptions, i, e.Pitch)
		}
		if e.End < e.Start {
			return fmt.Errorf("%w: event %d ends before it starts", ErrOptions, i)
		}
		key := uint8(e.Pitch)
		msgs = append(msgs,
			midiEvent{tick: toTick(e.Start), on: true, key: key, vel: e.Velocity()},
			midiEvent{tick: toTick(e.End), key: key},
		)
	}

	// Note-offs sort before note-ons at the same tick so repeated notes
	// retrigger.
	slices.SortStableFunc(msgs, func(a, b midiEvent) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		switch {
		case a.on == b.on:
			return 0
		case a.on:
			return 1
		default:
			return -1
		}
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))

	var last uint32
	for _, m := range msgs {
		delta := m.tick - last
		last = m.tick
		if m.on {
			tr.Add(delta, midi.NoteOn(0, m.key, m.vel))
		} else {
			tr.Add(delta, midi.NoteOff(0, m.key))
		}
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("notes: building MIDI track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("notes: writing MIDI: %w", err)
	}

	return nil
}

package notes

import (
	"bytes"
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type noteMsg struct {
	tick     uint32
	on       bool
	key, vel uint8
}

func readNotes(t *testing.T, data []byte) []noteMsg {
	t.Helper()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("got %d tracks", len(s.Tracks))
	}

	var (
		out  []noteMsg
		tick uint32
	)
	for _, ev := range s.Tracks[0] {
		tick += ev.Delta
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			out = append(out, noteMsg{tick: tick, on: true, key: key, vel: vel})
		case msg.GetNoteEnd(&ch, &key):
			out = append(out, noteMsg{tick: tick, key: key})
		}
	}
	return out
}

func TestWriteMIDI(t *testing.T) {
	events := []Event{
		{Pitch: 60, Start: 0.5, End: 1.0, Amplitude: 0.5},
		{Pitch: 64, Start: 0.25, End: 0.5, Amplitude: 1},
	}

	var buf bytes.Buffer
	if err := WriteMIDI(&buf, events, 120); err != nil {
		t.Fatal(err)
	}

	// 120 BPM at 480 ticks per quarter is 960 ticks per second.
	want := []noteMsg{
		{tick: 240, on: true, key: 64, vel: 127},
		{tick: 480, key: 64},
		{tick: 480, on: true, key: 60, vel: 64},
		{tick: 960, key: 60},
	}
	got := readNotes(t, buf.Bytes())
	if len(got) != len(want) {
		t.Fatalf("got %d note messages: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteMIDIEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, nil, 0); err != nil {
		t.Fatal(err)
	}
	if got := readNotes(t, buf.Bytes()); len(got) != 0 {
		t.Fatalf("empty input wrote %+v", got)
	}
}

func TestWriteMIDIRejectsBadEvents(t *testing.T) {
	for name, e := range map[string]Event{
		"pitch":    {Pitch: 128, Start: 0, End: 1},
		"negative": {Pitch: -1, Start: 0, End: 1},
		"reversed": {Pitch: 60, Start: 1, End: 0.5},
	} {
		t.Run(name, func(t *testing.T) {
			if err := WriteMIDI(&bytes.Buffer{}, []Event{e}, 120); !errors.Is(err, ErrOptions) {
				t.Fatalf("expected ErrOptions, got %v", err)
			}
		})
	}
}

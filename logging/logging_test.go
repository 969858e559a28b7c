package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, WarnLevel)

	l.Info("hidden")
	l.Warn("shown", Fields{"layer": 3})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown layer=3") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDefaultLoggerFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, DebugLevel).WithFields(Fields{"model": "note"})

	l.Error(errors.New("boom"), "load failed", Fields{"path": "x.json"})

	got := strings.TrimSpace(buf.String())
	want := "[ERROR] load failed: boom model=note path=x.json"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Fatalf("expected NoOpLogger, got %T", GetGlobalLogger())
	}
	if OrGlobal(nil) != GetGlobalLogger() {
		t.Fatal("OrGlobal(nil) should return the global logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"warning": WarnLevel,
		"ERROR":   ErrorLevel,
		"other":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

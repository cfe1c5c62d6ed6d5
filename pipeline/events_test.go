package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEventStream_FramesAndTerminate(t *testing.T) {
	var buf bytes.Buffer
	s := NewEventStream(&buf)

	s.Send(Event{Type: EventTextDelta, Text: "hello"})
	s.Terminate()

	out := buf.String()
	if !strings.Contains(out, `data: {"type":"text_delta","text":"hello"}`+"\n\n") {
		t.Errorf("output missing delta frame: %q", out)
	}
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Errorf("output missing terminal frame: %q", out)
	}
}

func TestEventStream_TerminateIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewEventStream(&buf)

	s.Terminate()
	s.Terminate()
	s.Send(Event{Type: EventTextDelta, Text: "late"})

	if got := strings.Count(buf.String(), "[DONE]"); got != 1 {
		t.Errorf("[DONE] written %d times, want 1", got)
	}
	if strings.Contains(buf.String(), "late") {
		t.Error("event written after terminate")
	}
	if !s.Closed() {
		t.Error("Closed() = false after Terminate")
	}
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestEventStream_WriteFailureStopsWrites(t *testing.T) {
	w := &failingWriter{}
	s := NewEventStream(w)

	s.Send(Event{Type: EventTextDelta, Text: "a"})
	s.Send(Event{Type: EventTextDelta, Text: "b"})
	s.Terminate()

	if w.writes != 1 {
		t.Errorf("underlying writer saw %d writes, want 1", w.writes)
	}
	if !s.Closed() {
		t.Error("Closed() = false after write failure")
	}
}

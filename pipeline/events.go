// Package pipeline implements the streaming classification flow: relaying
// a provider's token stream to the client, extracting the structured
// action block from the accumulated text, and reconciling the extracted
// actions against the store.
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/cwillim/taskdeck/store"
)

// Event is one outbound wire event, serialized as a `data: <json>` SSE
// frame.
type Event struct {
	Type  string      `json:"type"`
	Text  string      `json:"text,omitempty"`
	Task  *store.Task `json:"task,omitempty"`
	Error string      `json:"error,omitempty"`
}

const (
	// EventTextDelta carries one upstream text delta, in arrival order.
	EventTextDelta = "text_delta"
	// EventTaskCreated carries the task created from a classification.
	EventTaskCreated = "task_created"
	// EventTaskUpdated carries a task after an applied update directive.
	EventTaskUpdated = "task_updated"
	// EventError reports an upstream or processing failure, at most once.
	EventError = "error"
)

// EventStream writes SSE frames to an underlying connection with a close
// guard: after Terminate, or after the first write failure (client gone),
// all further writes are dropped. Terminate is idempotent and emits the
// terminal [DONE] line exactly once.
type EventStream struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func()
	closed bool
}

// NewEventStream wraps w for SSE output. When w implements http.Flusher
// each frame is flushed immediately so deltas reach the client without
// buffering delay.
func NewEventStream(w io.Writer) *EventStream {
	s := &EventStream{w: w, flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
	}
	return s
}

// Send emits one event frame. Events after close are silently dropped.
func (s *EventStream) Send(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		// The consumer hung up; stop writing but let the pipeline finish.
		s.closed = true
		return
	}
	s.flush()
}

// Terminate writes the terminal `data: [DONE]` line and closes the
// stream. Safe to call more than once and after the transport is gone.
func (s *EventStream) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return
	}
	s.flush()
}

// Closed reports whether the stream has been terminated or abandoned.
func (s *EventStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

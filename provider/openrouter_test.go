package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// sseServer returns a test server that writes the given raw body as an
// event stream, flushing after every chunk.
func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer is not a flusher")
		}
		for _, c := range chunks {
			fmt.Fprint(w, c)
			f.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(baseURL string) *OpenRouterProvider {
	return NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
}

func collect(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestStream_TextDeltasAndUsage(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n",
		`data: {"choices":[{"delta":{"content":"lo"}}]}`+"\n\n",
		`data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`+"\n\n",
		"data: [DONE]\n\n",
	)
	p := newTestProvider(srv.URL)

	ch, err := p.Stream(context.Background(), "sys", []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != "text" || events[0].Text != "Hel" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Type != "text" || events[1].Text != "lo" {
		t.Errorf("event 1 = %+v", events[1])
	}
	done := events[2]
	if done.Type != "done" {
		t.Fatalf("last event = %+v, want done", done)
	}
	if done.Usage == nil || done.Usage.InputTokens != 12 || done.Usage.OutputTokens != 4 {
		t.Errorf("Usage = %+v, want 12/4", done.Usage)
	}
}

func TestStream_ChunkBoundaryIndependence(t *testing.T) {
	// The same frame split mid-line across transport chunks must decode
	// identically to an unsplit stream.
	frame := `data: {"choices":[{"delta":{"content":"hello world"}}]}` + "\n\n"
	srv := sseServer(t,
		frame[:13],
		frame[13:30],
		frame[30:],
		"data: [DONE]\n\n",
	)
	p := newTestProvider(srv.URL)

	ch, err := p.Stream(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "hello world" {
		t.Errorf("Text = %q, want %q", events[0].Text, "hello world")
	}
	if events[1].Type != "done" {
		t.Errorf("last event = %+v, want done", events[1])
	}
}

func TestStream_MalformedFramesSkipped(t *testing.T) {
	srv := sseServer(t,
		"data: {not json}\n\n",
		": comment line\n\n",
		`data: {"choices":[{"delta":{"content":"ok"}}]}`+"\n\n",
		"data: [DONE]\n\n",
	)
	p := newTestProvider(srv.URL)

	ch, err := p.Stream(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "ok" {
		t.Errorf("Text = %q, want ok", events[0].Text)
	}
}

func TestStream_EOFWithoutDone(t *testing.T) {
	srv := sseServer(t,
		`data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n",
	)
	p := newTestProvider(srv.URL)

	ch, err := p.Stream(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, ch)

	if len(events) != 2 || events[1].Type != "done" {
		t.Fatalf("events = %+v, want text then done", events)
	}
}

func TestStream_Non200ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	p := newTestProvider(srv.URL)

	_, err := p.Stream(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Stream returned nil error for 429 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestChat_NonStreaming(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{
			"choices":[{"message":{"role":"assistant","content":"answer"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":3}
		}`)
	}))
	t.Cleanup(srv.Close)
	p := newTestProvider(srv.URL)

	resp, err := p.Chat(context.Background(), "system prompt", []Message{{Role: RoleUser, Content: "question"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("Content = %q, want %q", resp.Content, "answer")
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 3 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if gotReq.Stream {
		t.Error("request had stream=true")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("Messages = %+v, want system prompt prepended", gotReq.Messages)
	}
}

func TestChat_APIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model not found","type":"invalid_request"}}`)
	}))
	t.Cleanup(srv.Close)
	p := newTestProvider(srv.URL)

	_, err := p.Chat(context.Background(), "", []Message{{Role: RoleUser, Content: "q"}})
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("err = %v, want embedded API message", err)
	}
}

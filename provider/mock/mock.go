// Package mock provides a scripted text-generation provider for testing.
package mock

import (
	"context"
	"fmt"

	"github.com/cwillim/taskdeck/provider"
)

const defaultResponse = "Noted. I filed that for you."

// Provider implements provider.Provider with scripted responses. Stream
// splits each response into per-rune-cluster deltas so consumers see a
// realistic multi-event feed.
type Provider struct {
	responses []string
	chunkSize int
	idx       int

	// Err, when set, makes Stream and Chat fail immediately.
	Err error
}

// New creates a Provider that cycles through the given responses.
func New(responses ...string) *Provider {
	return &Provider{responses: responses, chunkSize: 7}
}

// WithChunkSize overrides how many bytes each streamed text delta
// carries. Useful for chunk-boundary tests.
func (m *Provider) WithChunkSize(n int) *Provider {
	m.chunkSize = n
	return m
}

// Name returns the provider identifier.
func (m *Provider) Name() string { return "mock" }

// Chat returns the next scripted response, cycling through the queue.
func (m *Provider) Chat(_ context.Context, _ string, _ []provider.Message) (*provider.Response, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	content := defaultResponse
	if len(m.responses) > 0 {
		content = m.responses[m.idx%len(m.responses)]
		m.idx++
	}
	return &provider.Response{
		Content: content,
		Usage:   provider.Usage{InputTokens: 12, OutputTokens: len(content)},
	}, nil
}

// Stream replays the next scripted response as a sequence of text deltas
// followed by a done event carrying usage.
func (m *Provider) Stream(ctx context.Context, system string, messages []provider.Message) (<-chan provider.StreamEvent, error) {
	resp, err := m.Chat(ctx, system, messages)
	if err != nil {
		return nil, fmt.Errorf("mock stream: %w", err)
	}

	ch := make(chan provider.StreamEvent, 16)
	go func() {
		defer close(ch)
		content := resp.Content
		for len(content) > 0 {
			n := m.chunkSize
			if n <= 0 || n > len(content) {
				n = len(content)
			}
			ch <- provider.StreamEvent{Type: "text", Text: content[:n]}
			content = content[n:]
		}
		usage := resp.Usage
		ch <- provider.StreamEvent{Type: "done", Usage: &usage}
	}()
	return ch, nil
}

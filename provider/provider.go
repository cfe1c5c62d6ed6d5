// Package provider defines the text-generation backend used by the
// classification and scheduling flows.
package provider

import "context"

// Role identifies the sender of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage tracks token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a completed (non-streaming) provider response.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// StreamEvent is emitted during streaming responses.
type StreamEvent struct {
	Type  string `json:"type"` // "text", "done", "error"
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
	Usage *Usage `json:"usage,omitempty"`
}

// Provider is a text-generation backend.
type Provider interface {
	// Name returns the provider identifier (e.g., "openrouter", "mock").
	Name() string

	// Chat sends a non-streaming request and returns the complete
	// response. The system prompt is prepended to the conversation.
	Chat(ctx context.Context, system string, messages []Message) (*Response, error)

	// Stream sends a streaming request. Events are delivered on the
	// returned channel, which is closed when the response is complete or
	// an error occurs.
	Stream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error)
}

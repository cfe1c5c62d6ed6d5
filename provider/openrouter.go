package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api"
	defaultOpenRouterModel   = "anthropic/claude-sonnet-4-5"
	defaultMaxTokens         = 1024
)

// OpenRouterConfig holds configuration for the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	Referer    string // HTTP-Referer attribution header
	Title      string // X-Title attribution header
	HTTPClient *http.Client
}

// OpenRouterProvider implements Provider against the OpenRouter
// chat-completions API (OpenAI-compatible wire format).
type OpenRouterProvider struct {
	config OpenRouterConfig
}

// NewOpenRouterProvider creates a new OpenRouter provider with the given
// config.
func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	if cfg.Model == "" {
		cfg.Model = defaultOpenRouterModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &OpenRouterProvider{config: cfg}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []wireMessage `json:"messages"`
	Stream    bool          `json:"stream,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
	Error   *wireError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Chat sends a non-streaming completion request.
func (p *OpenRouterProvider) Chat(ctx context.Context, system string, messages []Message) (*Response, error) {
	resp, err := p.send(ctx, system, messages, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("openrouter: unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("openrouter: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	out := &Response{
		Usage: Usage{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
		},
	}
	if len(apiResp.Choices) > 0 {
		out.Content = apiResp.Choices[0].Message.Content
	}
	return out, nil
}

// Stream sends a streaming completion request and decodes the SSE frames.
func (p *OpenRouterProvider) Stream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error) {
	resp, err := p.send(ctx, system, messages, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("openrouter: API error (status %d): %s", resp.StatusCode, string(body))
	}

	ch := make(chan StreamEvent, 16)
	go p.readSSE(resp.Body, ch)
	return ch, nil
}

func (p *OpenRouterProvider) send(ctx context.Context, system string, messages []Message, stream bool) (*http.Response, error) {
	reqBody := chatRequest{
		Model:     p.config.Model,
		MaxTokens: p.config.MaxTokens,
		Stream:    stream,
		Messages:  make([]wireMessage, 0, len(messages)+1),
	}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, wireMessage{Role: "system", Content: system})
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, wireMessage{Role: string(msg.Role), Content: msg.Content})
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if p.config.Referer != "" {
		req.Header.Set("HTTP-Referer", p.config.Referer)
	}
	if p.config.Title != "" {
		req.Header.Set("X-Title", p.config.Title)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: send request: %w", err)
	}
	return resp, nil
}

// streamChunk is one decoded SSE frame payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// readSSE parses the SSE stream from the chat completions API. The
// bufio.Scanner buffers partial lines across chunk boundaries, so frame
// decoding is independent of how the transport splits the byte stream.
func (p *OpenRouterProvider) readSSE(body io.ReadCloser, ch chan<- StreamEvent) {
	defer func() { _ = body.Close() }()
	defer close(ch)

	scanner := bufio.NewScanner(body)

	var usage *Usage

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			ch <- StreamEvent{Type: "done", Usage: usage}
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed frames never abort the stream.
			continue
		}

		// Usage arrives in a late chunk on some models; last one wins.
		if chunk.Usage != nil {
			usage = &Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		if c := chunk.Choices[0].Delta.Content; c != nil && *c != "" {
			ch <- StreamEvent{Type: "text", Text: *c}
		}
	}

	if err := scanner.Err(); err != nil {
		ch <- StreamEvent{Type: "error", Error: err.Error()}
		return
	}
	// Upstream closed without a [DONE] sentinel; treat as completion.
	ch <- StreamEvent{Type: "done", Usage: usage}
}

package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cwillim/taskdeck/provider"
	"github.com/cwillim/taskdeck/store"
)

const defaultHistoryLimit = 20

// Pipeline runs one chat turn end to end: relay the provider's token
// stream to the outbound event stream while accumulating it, then
// extract and reconcile the embedded action block. Construct with
// explicit dependencies; there is no package-level state.
type Pipeline struct {
	Store    store.Store
	Provider provider.Provider
	Logger   *slog.Logger

	// HistoryLimit bounds how many prior turns are sent upstream.
	// Zero means the default of 20.
	HistoryLimit int
}

// Run executes a full classification turn for the given user message.
// Exactly one terminal [DONE] line is written before the stream closes,
// on success and failure alike. Errors are absorbed or surfaced as a
// single error event; nothing here is fatal to the caller.
func (p *Pipeline) Run(ctx context.Context, message string, out *EventStream) {
	defer out.Terminate()

	if _, err := p.Store.AppendChatMessage(&store.ChatMessage{
		Role:    store.RoleUser,
		Content: message,
	}); err != nil {
		p.Logger.Error("persist user message", slog.Any("err", err))
	}

	inboxItem, err := p.Store.CreateInboxItem(message)
	if err != nil {
		p.Logger.Error("create inbox item", slog.Any("err", err))
		out.Send(Event{Type: EventError, Error: "could not record message"})
		return
	}

	full, usage := p.relay(ctx, out)

	if full != "" {
		meta := map[string]string{}
		if usage != nil {
			meta["input_tokens"] = strconv.Itoa(usage.InputTokens)
			meta["output_tokens"] = strconv.Itoa(usage.OutputTokens)
		}
		if _, err := p.Store.AppendChatMessage(&store.ChatMessage{
			Role:     store.RoleAssistant,
			Content:  full,
			Metadata: meta,
		}); err != nil {
			p.Logger.Error("persist assistant message", slog.Any("err", err))
		}
	}

	// Extraction runs even after an upstream failure so partial progress
	// is not lost.
	bundle := Extract(full)
	rec := &Reconciler{Store: p.Store, Logger: p.Logger}
	rec.Apply(bundle, inboxItem.ID, out)
}

// relay streams the provider response, re-emitting each text delta as an
// outbound event in arrival order and accumulating the full text. The
// last usage summary wins. Upstream failure surfaces as a single error
// event; the text accumulated so far is still returned.
func (p *Pipeline) relay(ctx context.Context, out *EventStream) (string, *provider.Usage) {
	history, err := p.Store.RecentChatMessages(p.historyLimit())
	if err != nil {
		p.Logger.Error("load chat history", slog.Any("err", err))
	}
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, provider.Message{
			Role:    provider.Role(m.Role),
			Content: m.Content,
		})
	}

	ch, err := p.Provider.Stream(ctx, ClassifySystemPrompt, msgs)
	if err != nil {
		out.Send(Event{Type: EventError, Error: err.Error()})
		return "", nil
	}

	var full strings.Builder
	var usage *provider.Usage
	for ev := range ch {
		switch ev.Type {
		case "text":
			full.WriteString(ev.Text)
			out.Send(Event{Type: EventTextDelta, Text: ev.Text})
		case "done":
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case "error":
			out.Send(Event{Type: EventError, Error: ev.Error})
		}
	}
	return full.String(), usage
}

func (p *Pipeline) historyLimit() int {
	if p.HistoryLimit > 0 {
		return p.HistoryLimit
	}
	return defaultHistoryLimit
}

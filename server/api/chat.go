package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cwillim/taskdeck/pipeline"
)

const maxMessageLen = 5000

type chatRequest struct {
	Message string `json:"message"`
}

// listChat returns recent conversation turns in chronological order.
// The limit query param caps the window, defaulting to the pipeline's
// history limit.
func (h *Handlers) listChat(w http.ResponseWriter, r *http.Request) {
	limit := h.Pipeline.HistoryLimit
	if limit <= 0 {
		limit = 20
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	msgs, err := h.Store.RecentChatMessages(limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// chat runs one classification turn and streams the result as
// server-sent events. The stream always ends with a [DONE] frame, even
// on upstream failure.
func (h *Handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message exceeds 5000 characters")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	out := pipeline.NewEventStream(w)
	h.Pipeline.Run(r.Context(), req.Message, out)
}

package api

import (
	"net/http"
	"strconv"
)

// listInbox returns captured inbox items, optionally filtered by the
// processed query param ("true" or "false").
func (h *Handlers) listInbox(w http.ResponseWriter, r *http.Request) {
	var processed *bool
	if raw := r.URL.Query().Get("processed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "processed must be true or false")
			return
		}
		processed = &v
	}
	items, err := h.Store.ListInboxItems(processed)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handlers) countInbox(w http.ResponseWriter, _ *http.Request) {
	n, err := h.Store.CountUnprocessedInbox()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unprocessed": n})
}

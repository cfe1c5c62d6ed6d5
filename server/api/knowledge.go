package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cwillim/taskdeck/store"
)

type knowledgeRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
	Source  *string  `json:"source"`
}

func validKnowledgeSource(s store.KnowledgeSource) bool {
	switch s {
	case store.SourceManual, store.SourceAIChat, store.SourceImport:
		return true
	}
	return false
}

func (r *knowledgeRequest) validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if r.Source != nil && !validKnowledgeSource(store.KnowledgeSource(*r.Source)) {
		return fmt.Errorf("invalid source %q", *r.Source)
	}
	return nil
}

// listKnowledge searches the knowledge base. Query params: q (substring
// match against title and content) and tags (comma separated, any may
// match). Both empty lists everything.
func (h *Handlers) listKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	entries, err := h.Store.SearchKnowledge(q, tags)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) createKnowledge(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e := &store.KnowledgeEntry{
		Title:  strings.TrimSpace(*req.Title),
		Tags:   req.Tags,
		Source: store.SourceManual,
	}
	if req.Content != nil {
		e.Content = *req.Content
	}
	if req.Source != nil {
		e.Source = store.KnowledgeSource(*req.Source)
	}
	if _, err := h.Store.CreateKnowledge(e); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handlers) getKnowledge(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetKnowledge(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) updateKnowledge(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetKnowledge(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		e.Content = *req.Content
	}
	if req.Tags != nil {
		e.Tags = req.Tags
	}
	if req.Source != nil {
		e.Source = store.KnowledgeSource(*req.Source)
	}
	if err := h.Store.UpdateKnowledge(e); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) deleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteKnowledge(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) knowledgeTags(w http.ResponseWriter, _ *http.Request) {
	tags, err := h.Store.KnowledgeTags()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// Package api implements the taskdeck REST handlers.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwillim/taskdeck/pipeline"
	"github.com/cwillim/taskdeck/provider"
	"github.com/cwillim/taskdeck/store"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Store    store.Store
	Provider provider.Provider
	Pipeline *pipeline.Pipeline
	Logger   *slog.Logger
	Version  string

	// WIPLimit caps the IN_PROGRESS column for direct edits. Zero
	// disables the gate.
	WIPLimit int
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/move", h.moveTask)

	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.deleteProject)

	mux.HandleFunc("GET /api/knowledge", h.listKnowledge)
	mux.HandleFunc("POST /api/knowledge", h.createKnowledge)
	mux.HandleFunc("GET /api/knowledge/tags", h.knowledgeTags)
	mux.HandleFunc("GET /api/knowledge/{id}", h.getKnowledge)
	mux.HandleFunc("PATCH /api/knowledge/{id}", h.updateKnowledge)
	mux.HandleFunc("DELETE /api/knowledge/{id}", h.deleteKnowledge)

	mux.HandleFunc("GET /api/inbox", h.listInbox)
	mux.HandleFunc("GET /api/inbox/count", h.countInbox)

	mux.HandleFunc("GET /api/chat", h.listChat)
	mux.HandleFunc("POST /api/chat", h.chat)

	mux.HandleFunc("POST /api/schedule/generate", h.generateSchedule)
	mux.HandleFunc("GET /api/time-blocks", h.listTimeBlocks)
	mux.HandleFunc("PATCH /api/time-blocks/{id}", h.updateTimeBlock)
	mux.HandleFunc("DELETE /api/time-blocks/{id}", h.deleteTimeBlock)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors to 404/500.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"version":  h.Version,
		"provider": h.Provider.Name(),
	})
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}

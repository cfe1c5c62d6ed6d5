package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cwillim/taskdeck/store"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func validProjectStatus(s store.ProjectStatus) bool {
	switch s {
	case store.ProjectActive, store.ProjectCompleted, store.ProjectOnHold:
		return true
	}
	return false
}

func (r *projectRequest) validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if r.Status != nil && !validProjectStatus(store.ProjectStatus(*r.Status)) {
		return fmt.Errorf("invalid status %q", *r.Status)
	}
	return nil
}

func (h *Handlers) listProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := h.Store.ListProjects()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &store.Project{Name: strings.TrimSpace(*req.Name)}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = store.ProjectStatus(*req.Status)
	}
	if _, err := h.Store.CreateProject(p); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProject(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) updateProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProject(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = store.ProjectStatus(*req.Status)
	}
	if err := h.Store.UpdateProject(p); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProject(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

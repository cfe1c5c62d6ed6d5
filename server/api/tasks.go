package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cwillim/taskdeck/kanban"
	"github.com/cwillim/taskdeck/store"
)

const maxTitleLen = 200

type taskRequest struct {
	Title               *string  `json:"title"`
	Description         *string  `json:"description"`
	ProjectID           *string  `json:"projectId"`
	Priority            *string  `json:"priority"`
	Status              *string  `json:"status"`
	ContextTags         []string `json:"contextTags"`
	DueDate             *string  `json:"dueDate"`
	TimeEstimateMinutes *int     `json:"timeEstimateMinutes"`
	BlockType           *string  `json:"blockType"`
}

// validate checks field constraints shared by create and update.
func (r *taskRequest) validate() error {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		if t == "" {
			return fmt.Errorf("title must not be empty")
		}
		if len(t) > maxTitleLen {
			return fmt.Errorf("title exceeds %d characters", maxTitleLen)
		}
	}
	if r.Priority != nil && !store.ValidPriority(store.Priority(*r.Priority)) {
		return fmt.Errorf("invalid priority %q", *r.Priority)
	}
	if r.Status != nil && !store.ValidStatus(store.Status(*r.Status)) {
		return fmt.Errorf("invalid status %q", *r.Status)
	}
	if r.BlockType != nil && !store.ValidBlockType(store.BlockType(*r.BlockType)) {
		return fmt.Errorf("invalid blockType %q", *r.BlockType)
	}
	if r.TimeEstimateMinutes != nil && (*r.TimeEstimateMinutes < 0 || *r.TimeEstimateMinutes > 1440) {
		return fmt.Errorf("timeEstimateMinutes must be between 0 and 1440")
	}
	return nil
}

// dueSoonWindowDays is how far ahead the upcoming-deadlines view looks.
const dueSoonWindowDays = 7

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*store.Task
		err   error
	)
	if r.URL.Query().Get("dueSoon") == "true" {
		tasks, err = h.Store.ListTasksDueSoon(dueSoonWindowDays)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !store.ValidStatus(store.Status(s)) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", s))
			return
		}
		tasks, err = h.Store.ListTasksByStatus(store.Status(s))
	} else {
		tasks, err = h.Store.ListTasks()
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
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

	task := &store.Task{
		Title:       strings.TrimSpace(*req.Title),
		ContextTags: req.ContextTags,
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.ProjectID != nil {
		task.ProjectID = *req.ProjectID
	}
	if req.Priority != nil {
		task.Priority = store.Priority(*req.Priority)
	}
	if req.Status != nil {
		task.Status = store.Status(*req.Status)
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	task.TimeEstimateMinutes = req.TimeEstimateMinutes
	if req.BlockType != nil {
		task.BlockType = store.BlockType(*req.BlockType)
	}

	if task.Status == store.StatusInProgress {
		if ok, err := h.underWIPLimit(); err != nil {
			writeStoreError(w, err)
			return
		} else if !ok {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("work-in-progress limit of %d reached", h.WIPLimit))
			return
		}
	}

	if _, err := h.Store.CreateTask(task); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Store.GetTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Store.GetTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Status != nil && store.Status(*req.Status) == store.StatusInProgress &&
		task.Status != store.StatusInProgress {
		if ok, err := h.underWIPLimit(); err != nil {
			writeStoreError(w, err)
			return
		} else if !ok {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("work-in-progress limit of %d reached", h.WIPLimit))
			return
		}
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.ProjectID != nil {
		task.ProjectID = *req.ProjectID
	}
	if req.Priority != nil {
		task.Priority = store.Priority(*req.Priority)
	}
	if req.Status != nil {
		task.Status = store.Status(*req.Status)
	}
	if req.ContextTags != nil {
		task.ContextTags = req.ContextTags
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.TimeEstimateMinutes != nil {
		task.TimeEstimateMinutes = req.TimeEstimateMinutes
	}
	if req.BlockType != nil {
		task.BlockType = store.BlockType(*req.BlockType)
	}

	if err := h.Store.UpdateTask(task); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTask(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Status      string `json:"status"`
	TargetIndex int    `json:"targetIndex"`
}

// moveTask moves a task into a column position, computing an
// insertion sort key and reindexing the column on key collision.
func (h *Handlers) moveTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Store.GetTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dest := store.Status(req.Status)
	if !store.ValidStatus(dest) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
		return
	}
	if req.TargetIndex < 0 {
		writeError(w, http.StatusBadRequest, "targetIndex must not be negative")
		return
	}

	if dest == store.StatusInProgress && task.Status != store.StatusInProgress {
		if ok, err := h.underWIPLimit(); err != nil {
			writeStoreError(w, err)
			return
		} else if !ok {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("work-in-progress limit of %d reached", h.WIPLimit))
			return
		}
	}

	column, err := h.Store.ListTasksByStatus(dest)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	items := make([]kanban.Item, 0, len(column))
	for _, t := range column {
		if t.ID == task.ID {
			continue
		}
		items = append(items, kanban.Item{ID: t.ID, SortOrder: t.SortOrder})
	}
	plan := kanban.PlanMove(items, req.TargetIndex)

	if dest == task.Status && plan.NoOpFor(kanban.Item{ID: task.ID, SortOrder: task.SortOrder}) {
		writeJSON(w, http.StatusOK, task)
		return
	}

	byID := make(map[string]*store.Task, len(column))
	for _, t := range column {
		byID[t.ID] = t
	}
	for _, re := range plan.Reindex {
		sibling, ok := byID[re.ID]
		if !ok || sibling.ID == task.ID {
			continue
		}
		sibling.SortOrder = re.SortOrder
		if err := h.Store.UpdateTask(sibling); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	task.Status = dest
	task.SortOrder = plan.SortOrder
	if err := h.Store.UpdateTask(task); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// underWIPLimit reports whether another task may enter IN_PROGRESS.
func (h *Handlers) underWIPLimit() (bool, error) {
	if h.WIPLimit <= 0 {
		return true, nil
	}
	n, err := h.Store.CountTasksByStatus(store.StatusInProgress)
	if err != nil {
		return false, err
	}
	return n < h.WIPLimit, nil
}

// sortByPriority orders tasks urgent first, then by sort key.
func sortByPriority(tasks []*store.Task) {
	rank := map[store.Priority]int{
		store.PriorityUrgent:    0,
		store.PriorityImportant: 1,
		store.PriorityNormal:    2,
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := rank[tasks[i].Priority], rank[tasks[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return tasks[i].SortOrder < tasks[j].SortOrder
	})
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cwillim/taskdeck/pipeline"
	"github.com/cwillim/taskdeck/provider"
	"github.com/cwillim/taskdeck/store"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type scheduleRequest struct {
	Date string `json:"date"`
}

// generateSchedule asks the provider for a time-block plan covering the
// TODAY and IN_PROGRESS columns and replaces the date's stored blocks
// with the result. Non-streaming; schedule generation has no
// incremental value to show.
func (h *Handlers) generateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}
	if !dateRe.MatchString(req.Date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	today, err := h.Store.ListTasksByStatus(store.StatusToday)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	active, err := h.Store.ListTasksByStatus(store.StatusInProgress)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	tasks := append(today, active...)
	if len(tasks) == 0 {
		writeError(w, http.StatusBadRequest, "no tasks to schedule")
		return
	}
	sortByPriority(tasks)

	resp, err := h.Provider.Chat(r.Context(), pipeline.ScheduleSystemPrompt, []provider.Message{
		{Role: provider.RoleUser, Content: scheduleUserPrompt(req.Date, tasks)},
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("schedule generation failed: %v", err))
		return
	}

	plans := pipeline.ExtractSchedule(resp.Content)
	if plans == nil {
		writeError(w, http.StatusInternalServerError, "provider returned no usable schedule")
		return
	}

	blocks := make([]*store.TimeBlock, 0, len(plans))
	for i, p := range plans {
		blocks = append(blocks, &store.TimeBlock{
			Date:      req.Date,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			TaskID:    p.TaskID,
			BlockType: p.BlockType,
			Label:     p.Label,
			SortOrder: i,
		})
	}
	saved, err := h.Store.ReplaceTimeBlocksForDate(req.Date, blocks)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handlers) listTimeBlocks(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if !dateRe.MatchString(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	blocks, err := h.Store.ListTimeBlocksByDate(date)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if blocks == nil {
		blocks = []*store.TimeBlock{}
	}
	writeJSON(w, http.StatusOK, blocks)
}

// timeBlockRequest carries a partial edit of a stored block. Nil
// fields are left unchanged.
type timeBlockRequest struct {
	StartTime *string          `json:"startTime"`
	EndTime   *string          `json:"endTime"`
	TaskID    *string          `json:"taskId"`
	BlockType *store.BlockType `json:"blockType"`
	Label     *string          `json:"label"`
	SortOrder *int             `json:"sortOrder"`
}

var timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

func (h *Handlers) updateTimeBlock(w http.ResponseWriter, r *http.Request) {
	var req timeBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StartTime != nil && !timeRe.MatchString(*req.StartTime) {
		writeError(w, http.StatusBadRequest, "startTime must be HH:MM")
		return
	}
	if req.EndTime != nil && !timeRe.MatchString(*req.EndTime) {
		writeError(w, http.StatusBadRequest, "endTime must be HH:MM")
		return
	}
	if req.BlockType != nil {
		switch *req.BlockType {
		case store.BlockDeep, store.BlockShallow, store.BlockBreak:
		default:
			writeError(w, http.StatusBadRequest, "blockType must be deep, shallow, or break")
			return
		}
	}

	block, err := h.Store.GetTimeBlock(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if req.StartTime != nil {
		block.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		block.EndTime = *req.EndTime
	}
	if req.TaskID != nil {
		block.TaskID = *req.TaskID
	}
	if req.BlockType != nil {
		block.BlockType = *req.BlockType
	}
	if req.Label != nil {
		block.Label = *req.Label
	}
	if req.SortOrder != nil {
		block.SortOrder = *req.SortOrder
	}
	if err := h.Store.UpdateTimeBlock(block); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (h *Handlers) deleteTimeBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTimeBlock(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scheduleUserPrompt renders the task list the model schedules from.
func scheduleUserPrompt(date string, tasks []*store.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n\nTasks to schedule:\n", date)
	for _, t := range tasks {
		est := 60
		if t.TimeEstimateMinutes != nil {
			est = *t.TimeEstimateMinutes
		}
		mode := t.BlockType
		if mode == "" {
			mode = store.BlockDeep
		}
		fmt.Fprintf(&b, "- id=%s [%s] %s (%d min, %s)\n", t.ID, t.Priority, t.Title, est, mode)
	}
	return b.String()
}

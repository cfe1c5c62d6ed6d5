package pipeline

import (
	"encoding/json"
	"errors"
	"log/slog"

	"golang.org/x/text/cases"

	"github.com/cwillim/taskdeck/store"
)

// Reconciler turns an extracted action bundle into persisted entity
// mutations. Every failure mode is lenient: unknown IDs skip the
// directive, a persistence error logs and moves on, and nothing here
// rolls back earlier writes. Side effects are visible immediately.
type Reconciler struct {
	Store  store.Store
	Logger *slog.Logger
}

// fold canonicalizes project names for case-insensitive matching.
var fold = cases.Fold()

// Apply processes the bundle in order: classification, task updates,
// knowledge actions, then marks the originating inbox item processed.
// It emits a task_created/task_updated event per applied mutation and
// returns the ID of the task created from the classification, if any.
func (r *Reconciler) Apply(bundle Bundle, inboxID string, out *EventStream) string {
	projects := r.projectIndex()

	var createdTaskID string
	if c := bundle.Classification; c != nil {
		createdTaskID = r.applyClassification(c, projects, out)
	}

	for _, u := range bundle.TaskUpdates {
		r.applyTaskUpdate(u, projects, out)
	}

	for _, a := range bundle.KnowledgeActions {
		r.applyKnowledgeAction(a)
	}

	r.markInboxProcessed(inboxID, bundle.Classification, createdTaskID)
	return createdTaskID
}

// projectIndex loads a snapshot of current projects keyed by case-folded
// name. Projects created during this run are added to the index so later
// directives reuse them instead of creating duplicates.
func (r *Reconciler) projectIndex() map[string]string {
	index := map[string]string{}
	projects, err := r.Store.ListProjects()
	if err != nil {
		r.Logger.Error("load project snapshot", slog.Any("err", err))
		return index
	}
	for _, p := range projects {
		index[fold.String(p.Name)] = p.ID
	}
	return index
}

// resolveProject maps a suggested project name to an existing project ID
// (case-insensitive exact match) or creates a new project with that name.
// Concurrent runs can race to duplicate a new name; accepted limitation.
func (r *Reconciler) resolveProject(name string, index map[string]string) string {
	if name == "" {
		return ""
	}
	key := fold.String(name)
	if id, ok := index[key]; ok {
		return id
	}
	p := &store.Project{Name: name}
	id, err := r.Store.CreateProject(p)
	if err != nil {
		r.Logger.Error("create project", slog.String("name", name), slog.Any("err", err))
		return ""
	}
	index[key] = id
	return id
}

func (r *Reconciler) applyClassification(c *Classification, projects map[string]string, out *EventStream) string {
	estimate := c.TimeEstimateMinutes
	t := &store.Task{
		Title:               c.Title,
		Priority:            c.Priority, // store defaults P1 when empty
		Status:              c.Status,   // store defaults BACKLOG when empty
		ProjectID:           r.resolveProject(c.ProjectSuggestion, projects),
		ContextTags:         c.ContextTags,
		TimeEstimateMinutes: &estimate,
		BlockType:           c.BlockType,
	}
	if _, err := r.Store.CreateTask(t); err != nil {
		r.Logger.Error("create classified task", slog.Any("err", err))
		return ""
	}
	out.Send(Event{Type: EventTaskCreated, Task: t})
	return t.ID
}

func (r *Reconciler) applyTaskUpdate(u TaskUpdate, projects map[string]string, out *EventStream) {
	t, err := r.Store.GetTask(u.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The model may hallucinate IDs; never abort the batch.
			r.Logger.Debug("task update target missing", slog.String("task_id", u.TaskID))
			return
		}
		r.Logger.Error("load task for update", slog.String("task_id", u.TaskID), slog.Any("err", err))
		return
	}

	if u.Title != nil && *u.Title != "" {
		t.Title = *u.Title
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.ContextTags != nil {
		t.ContextTags = u.ContextTags
	}
	if u.ProjectSuggestion != nil {
		if id := r.resolveProject(*u.ProjectSuggestion, projects); id != "" {
			t.ProjectID = id
		}
	}

	if err := r.Store.UpdateTask(t); err != nil {
		r.Logger.Error("apply task update", slog.String("task_id", u.TaskID), slog.Any("err", err))
		return
	}
	out.Send(Event{Type: EventTaskUpdated, Task: t})
}

func (r *Reconciler) applyKnowledgeAction(a KnowledgeAction) {
	switch a.Action {
	case KnowledgeCreate:
		e := &store.KnowledgeEntry{
			Title:   a.Title,
			Content: a.Content,
			Tags:    a.Tags,
			Source:  store.SourceAIChat,
		}
		if _, err := r.Store.CreateKnowledge(e); err != nil {
			r.Logger.Error("create knowledge entry", slog.Any("err", err))
		}
	case KnowledgeUpdate:
		e, err := r.Store.GetKnowledge(a.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				r.Logger.Debug("knowledge update target missing", slog.String("id", a.ID))
				return
			}
			r.Logger.Error("load knowledge entry", slog.String("id", a.ID), slog.Any("err", err))
			return
		}
		if a.Title != "" {
			e.Title = a.Title
		}
		if a.Content != "" {
			e.Content = a.Content
		}
		if a.Tags != nil {
			e.Tags = a.Tags
		}
		if err := r.Store.UpdateKnowledge(e); err != nil {
			r.Logger.Error("apply knowledge update", slog.String("id", a.ID), slog.Any("err", err))
		}
	}
}

func (r *Reconciler) markInboxProcessed(inboxID string, c *Classification, taskID string) {
	item, err := r.Store.GetInboxItem(inboxID)
	if err != nil {
		r.Logger.Error("load inbox item", slog.String("id", inboxID), slog.Any("err", err))
		return
	}
	item.Processed = true
	if c != nil {
		if data, err := json.Marshal(c); err == nil {
			item.ClassificationResult = data
		}
	}
	if taskID != "" {
		item.TaskID = taskID
	}
	if err := r.Store.UpdateInboxItem(item); err != nil {
		r.Logger.Error("mark inbox processed", slog.String("id", inboxID), slog.Any("err", err))
	}
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/cwillim/taskdeck/provider/mock"
	"github.com/cwillim/taskdeck/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "taskdeck-pipeline-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// decodeFrames splits an SSE byte stream into its event payloads. The
// terminal [DONE] frames are returned separately as a count.
func decodeFrames(t *testing.T, raw string) ([]Event, int) {
	t.Helper()
	var events []Event
	done := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			done++
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events, done
}

func runPipeline(t *testing.T, st store.Store, prov *mock.Provider, message string) ([]Event, int) {
	t.Helper()
	p := &Pipeline{Store: st, Provider: prov, Logger: discardLogger()}
	var buf bytes.Buffer
	p.Run(context.Background(), message, NewEventStream(&buf))
	return decodeFrames(t, buf.String())
}

func TestRun_ClassificationFlow(t *testing.T) {
	st := newTestStore(t)
	reply := "On it.\n```json\n" + `{
  "classification": {
    "title": "Fix login bug",
    "priority": "P0",
    "status": "TODAY",
    "contextTags": ["work"],
    "timeEstimateMinutes": 45,
    "blockType": "deep",
    "projectSuggestion": "Auth"
  }
}` + "\n```"
	prov := mock.New(reply).WithChunkSize(5)

	events, done := runPipeline(t, st, prov, "the login page 500s for some users")

	if done != 1 {
		t.Errorf("[DONE] count = %d, want exactly 1", done)
	}

	// Deltas arrive first, in order, and reassemble the full reply.
	var text strings.Builder
	var created *store.Task
	sawCreatedAfterText := false
	for _, ev := range events {
		switch ev.Type {
		case EventTextDelta:
			if created != nil {
				t.Error("text delta after task_created")
			}
			text.WriteString(ev.Text)
		case EventTaskCreated:
			created = ev.Task
			sawCreatedAfterText = true
		case EventError:
			t.Errorf("unexpected error event: %s", ev.Error)
		}
	}
	if text.String() != reply {
		t.Errorf("reassembled text = %q, want the full reply", text.String())
	}
	if !sawCreatedAfterText || created == nil {
		t.Fatal("no task_created event")
	}
	if created.Title != "Fix login bug" || created.Priority != store.PriorityUrgent {
		t.Errorf("created task = %+v", created)
	}

	// Task persisted with the classified fields.
	got, err := st.GetTask(created.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != store.StatusToday {
		t.Errorf("Status = %q, want TODAY", got.Status)
	}
	if got.TimeEstimateMinutes == nil || *got.TimeEstimateMinutes != 45 {
		t.Errorf("TimeEstimateMinutes = %v, want 45", got.TimeEstimateMinutes)
	}
	if got.ProjectID == "" {
		t.Error("ProjectID empty, want auto-created project")
	}

	// Inbox item processed and linked.
	items, err := st.ListInboxItems(nil)
	if err != nil {
		t.Fatalf("ListInboxItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("inbox items = %d, want 1", len(items))
	}
	if !items[0].Processed || items[0].TaskID != created.ID {
		t.Errorf("inbox item = %+v", items[0])
	}
	if len(items[0].ClassificationResult) == 0 {
		t.Error("ClassificationResult not recorded")
	}

	// Both conversation turns persisted; assistant carries token counts.
	msgs, err := st.RecentChatMessages(10)
	if err != nil {
		t.Fatalf("RecentChatMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("chat messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[1].Role != store.RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Metadata["output_tokens"] == "" {
		t.Error("assistant message missing token metadata")
	}
}

func TestRun_PlainReplyEmitsOnlyDeltas(t *testing.T) {
	st := newTestStore(t)
	events, done := runPipeline(t, st, mock.New("Nothing to do here, just chatting."), "hello")

	if done != 1 {
		t.Errorf("[DONE] count = %d, want 1", done)
	}
	for _, ev := range events {
		if ev.Type != EventTextDelta {
			t.Errorf("unexpected %s event for a reply with no action block", ev.Type)
		}
	}

	tasks, err := st.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks created = %d, want 0", len(tasks))
	}
}

func TestRun_UpstreamFailure(t *testing.T) {
	st := newTestStore(t)
	prov := mock.New("unused")
	prov.Err = errors.New("upstream unavailable")

	events, done := runPipeline(t, st, prov, "anything")

	if done != 1 {
		t.Errorf("[DONE] count = %d, want exactly 1", done)
	}
	errCount := 0
	for _, ev := range events {
		if ev.Type == EventError {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("error events = %d, want exactly 1", errCount)
	}

	// No assistant turn is persisted for an empty response.
	msgs, err := st.RecentChatMessages(10)
	if err != nil {
		t.Fatalf("RecentChatMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != store.RoleUser {
		t.Errorf("messages = %+v, want the user turn only", msgs)
	}

	// The capture is still recorded and marked processed.
	items, err := st.ListInboxItems(nil)
	if err != nil {
		t.Fatalf("ListInboxItems: %v", err)
	}
	if len(items) != 1 || !items[0].Processed {
		t.Errorf("inbox items = %+v", items)
	}
}

func TestRun_UnknownUpdateTargetSkipped(t *testing.T) {
	st := newTestStore(t)
	reply := "Done.\n```json\n" + `{"taskUpdates": [{"taskId": "no-such-task", "status": "DONE"}]}` + "\n```"
	prov := mock.New(reply)

	events, done := runPipeline(t, st, prov, "mark that one done")

	if done != 1 {
		t.Errorf("[DONE] count = %d, want 1", done)
	}
	for _, ev := range events {
		if ev.Type == EventTaskUpdated {
			t.Errorf("unexpected task_updated for unknown target: %+v", ev)
		}
		if ev.Type == EventError {
			t.Errorf("unknown target must not produce an error event: %+v", ev)
		}
	}
}

func TestRun_TaskUpdateApplied(t *testing.T) {
	st := newTestStore(t)
	task := &store.Task{Title: "Draft proposal"}
	id, err := st.CreateTask(task)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	reply := "Marked it done.\n```json\n" +
		`{"taskUpdates": [{"taskId": "` + id + `", "status": "DONE", "priority": "P2"}]}` + "\n```"
	events, _ := runPipeline(t, st, mock.New(reply), "I finished the proposal")

	var updated *store.Task
	for _, ev := range events {
		if ev.Type == EventTaskUpdated {
			updated = ev.Task
		}
	}
	if updated == nil {
		t.Fatal("no task_updated event")
	}
	if updated.Status != store.StatusDone || updated.Priority != store.PriorityNormal {
		t.Errorf("updated = %+v", updated)
	}

	got, err := st.GetTask(id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != store.StatusDone {
		t.Errorf("persisted status = %q, want DONE", got.Status)
	}
	if got.Title != "Draft proposal" {
		t.Errorf("Title changed to %q", got.Title)
	}
}

func TestRun_ProjectReuseIsCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	existing := &store.Project{Name: "Alpha"}
	existingID, err := st.CreateProject(existing)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	reply := "Filed.\n```json\n" + `{
  "classification": {"title": "Ship the alpha build", "projectSuggestion": "alpha"}
}` + "\n```"
	events, _ := runPipeline(t, st, mock.New(reply), "ship the alpha build")

	var created *store.Task
	for _, ev := range events {
		if ev.Type == EventTaskCreated {
			created = ev.Task
		}
	}
	if created == nil {
		t.Fatal("no task_created event")
	}
	if created.ProjectID != existingID {
		t.Errorf("ProjectID = %q, want existing project %q", created.ProjectID, existingID)
	}

	projects, err := st.ListProjects()
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("project count = %d, want 1 (no duplicate)", len(projects))
	}
}

func TestRun_KnowledgeActionsAreSilent(t *testing.T) {
	st := newTestStore(t)
	reply := "Saved that insight.\n```json\n" + `{
  "knowledgeActions": [
    {"action": "create", "title": "Deploy checklist", "content": "run migrations first", "tags": ["ops"]}
  ]
}` + "\n```"
	events, _ := runPipeline(t, st, mock.New(reply), "remember: run migrations before deploying")

	for _, ev := range events {
		if ev.Type == EventTaskCreated || ev.Type == EventTaskUpdated {
			t.Errorf("knowledge actions must not emit task events: %+v", ev)
		}
	}

	entries, err := st.SearchKnowledge("checklist", nil)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Source != store.SourceAIChat {
		t.Errorf("Source = %q, want %q", entries[0].Source, store.SourceAIChat)
	}
}

package pipeline

import (
	"testing"

	"github.com/cwillim/taskdeck/store"
	"github.com/google/go-cmp/cmp"
)

func TestExtract_FullBundle(t *testing.T) {
	text := "Got it, I'll set that up.\n\n```json\n" + `{
  "classification": {
    "title": "Fix login bug",
    "priority": "P0",
    "status": "TODAY",
    "contextTags": ["work", "bug"],
    "timeEstimateMinutes": 45,
    "blockType": "deep",
    "projectSuggestion": "Auth",
    "reasoning": "production incident"
  },
  "taskUpdates": [
    {"taskId": "t-1", "status": "DONE"}
  ],
  "knowledgeActions": [
    {"action": "create", "title": "Login flow", "content": "uses refresh tokens", "tags": ["auth"]}
  ]
}` + "\n```\nAnything else?"

	b := Extract(text)
	if b.Classification == nil {
		t.Fatal("Classification is nil")
	}
	want := &Classification{
		Title:               "Fix login bug",
		Priority:            store.PriorityUrgent,
		Status:              store.StatusToday,
		ContextTags:         []string{"work", "bug"},
		TimeEstimateMinutes: 45,
		BlockType:           store.BlockDeep,
		ProjectSuggestion:   "Auth",
		Reasoning:           "production incident",
	}
	if diff := cmp.Diff(want, b.Classification); diff != "" {
		t.Errorf("Classification mismatch (-want +got):\n%s", diff)
	}

	if len(b.TaskUpdates) != 1 || b.TaskUpdates[0].TaskID != "t-1" {
		t.Fatalf("TaskUpdates = %+v", b.TaskUpdates)
	}
	if b.TaskUpdates[0].Status == nil || *b.TaskUpdates[0].Status != store.StatusDone {
		t.Errorf("update status = %v, want DONE", b.TaskUpdates[0].Status)
	}
	if len(b.KnowledgeActions) != 1 || b.KnowledgeActions[0].Action != KnowledgeCreate {
		t.Errorf("KnowledgeActions = %+v", b.KnowledgeActions)
	}
}

func TestExtract_NoFence(t *testing.T) {
	b := Extract("Just a conversational reply with no actions.")
	if !b.Empty() {
		t.Errorf("bundle not empty: %+v", b)
	}
}

func TestExtract_BraceInsideString(t *testing.T) {
	// A '}' inside a string value must not terminate the block early.
	text := "```json\n" + `{"classification": {"title": "Review {config} changes", "timeEstimateMinutes": 30}}` + "\n```"
	b := Extract(text)
	if b.Classification == nil {
		t.Fatal("Classification is nil")
	}
	if b.Classification.Title != "Review {config} changes" {
		t.Errorf("Title = %q", b.Classification.Title)
	}
	if b.Classification.TimeEstimateMinutes != 30 {
		t.Errorf("TimeEstimateMinutes = %d, want 30", b.Classification.TimeEstimateMinutes)
	}
}

func TestExtract_EscapedQuoteInString(t *testing.T) {
	text := "```json\n" + `{"classification": {"title": "Read \"Deep Work\""}}` + "\n```"
	b := Extract(text)
	if b.Classification == nil {
		t.Fatal("Classification is nil")
	}
	if b.Classification.Title != `Read "Deep Work"` {
		t.Errorf("Title = %q", b.Classification.Title)
	}
}

func TestExtract_FirstFenceWins(t *testing.T) {
	text := "```json\n" + `{"classification": {"title": "first"}}` + "\n```\n" +
		"```json\n" + `{"classification": {"title": "second"}}` + "\n```"
	b := Extract(text)
	if b.Classification == nil || b.Classification.Title != "first" {
		t.Errorf("Classification = %+v, want the first block", b.Classification)
	}
}

func TestExtract_InvalidEnumsFallBack(t *testing.T) {
	text := "```json\n" + `{
  "classification": {
    "title": "Something",
    "priority": "CRITICAL",
    "status": "DOING",
    "blockType": "medium",
    "timeEstimateMinutes": 9999
  }
}` + "\n```"
	b := Extract(text)
	if b.Classification == nil {
		t.Fatal("Classification is nil")
	}
	c := b.Classification
	if c.Priority != "" {
		t.Errorf("Priority = %q, want empty for invalid value", c.Priority)
	}
	if c.Status != "" {
		t.Errorf("Status = %q, want empty for invalid value", c.Status)
	}
	if c.BlockType != store.BlockDeep {
		t.Errorf("BlockType = %q, want deep default", c.BlockType)
	}
	if c.TimeEstimateMinutes != 60 {
		t.Errorf("TimeEstimateMinutes = %d, want 60 default for out-of-range", c.TimeEstimateMinutes)
	}
}

func TestExtract_UpdateDropsInvalidFieldNotDirective(t *testing.T) {
	text := "```json\n" + `{
  "taskUpdates": [
    {"taskId": "t-9", "priority": "HIGH", "title": "renamed"}
  ]
}` + "\n```"
	b := Extract(text)
	if len(b.TaskUpdates) != 1 {
		t.Fatalf("TaskUpdates = %+v, want one entry", b.TaskUpdates)
	}
	u := b.TaskUpdates[0]
	if u.Priority != nil {
		t.Errorf("Priority = %v, want nil for invalid value", *u.Priority)
	}
	if u.Title == nil || *u.Title != "renamed" {
		t.Errorf("Title = %v, want renamed", u.Title)
	}
}

func TestExtract_MalformedMemberInvalidatesOnlyItself(t *testing.T) {
	text := "```json\n" + `{
  "classification": {"title": ["not", "a", "string"]},
  "knowledgeActions": [
    {"action": "create", "title": "Keeper", "content": "still valid"}
  ]
}` + "\n```"
	b := Extract(text)
	if b.Classification != nil {
		t.Errorf("Classification = %+v, want nil", b.Classification)
	}
	if len(b.KnowledgeActions) != 1 || b.KnowledgeActions[0].Title != "Keeper" {
		t.Errorf("KnowledgeActions = %+v", b.KnowledgeActions)
	}
}

func TestExtract_KnowledgeActionMinimums(t *testing.T) {
	text := "```json\n" + `{
  "knowledgeActions": [
    {"action": "create", "title": "no content"},
    {"action": "update", "id": ""},
    {"action": "update", "id": "k-1"},
    {"action": "update", "id": "k-2", "content": "new body"},
    {"action": "archive", "id": "k-3"}
  ]
}` + "\n```"
	b := Extract(text)
	if len(b.KnowledgeActions) != 1 {
		t.Fatalf("KnowledgeActions = %+v, want only the valid update", b.KnowledgeActions)
	}
	if b.KnowledgeActions[0].ID != "k-2" {
		t.Errorf("ID = %q, want k-2", b.KnowledgeActions[0].ID)
	}
}

func TestExtract_UnterminatedBlock(t *testing.T) {
	text := "```json\n" + `{"classification": {"title": "never closed"`
	if b := Extract(text); !b.Empty() {
		t.Errorf("bundle not empty: %+v", b)
	}
}

func TestExtractSchedule(t *testing.T) {
	text := "Here is your day.\n```json\n" + `{
  "timeBlocks": [
    {"startTime": "09:00", "endTime": "10:30", "taskId": "t-1", "blockType": "deep", "label": "Fix login bug"},
    {"startTime": "10:30", "endTime": "10:45", "taskId": null, "blockType": "break", "label": "Break"},
    {"startTime": "", "endTime": "11:00", "label": "dropped"},
    {"startTime": "11:00", "endTime": "12:00", "blockType": "focus", "label": "coerced"}
  ]
}` + "\n```"

	plans := ExtractSchedule(text)
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3: %+v", len(plans), plans)
	}
	if plans[0].TaskID != "t-1" || plans[0].BlockType != store.BlockDeep {
		t.Errorf("plan 0 = %+v", plans[0])
	}
	if plans[1].TaskID != "" || plans[1].BlockType != store.BlockBreak {
		t.Errorf("plan 1 = %+v", plans[1])
	}
	if plans[2].BlockType != store.BlockDeep {
		t.Errorf("plan 2 BlockType = %q, want deep fallback", plans[2].BlockType)
	}
}

func TestExtractSchedule_NoBlock(t *testing.T) {
	if plans := ExtractSchedule("no schedule here"); plans != nil {
		t.Errorf("plans = %+v, want nil", plans)
	}
}

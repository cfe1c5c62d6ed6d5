// Package store defines the taskdeck data model and its SQLite persistence.
package store

import "time"

// Priority orders tasks by urgency: P0 (urgent) > P1 (important) > P2 (normal).
type Priority string

const (
	PriorityUrgent    Priority = "P0"
	PriorityImportant Priority = "P1"
	PriorityNormal    Priority = "P2"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityImportant, PriorityNormal:
		return true
	}
	return false
}

// Status is a task's lifecycle column on the board.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusToday      Status = "TODAY"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists all board columns in display order.
var Statuses = []Status{StatusBacklog, StatusToday, StatusInProgress, StatusDone}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusToday, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// BlockType classifies work as deep (focused) or shallow (interruptible).
// Time blocks additionally use "break".
type BlockType string

const (
	BlockDeep    BlockType = "deep"
	BlockShallow BlockType = "shallow"
	BlockBreak   BlockType = "break"
)

// ValidBlockType reports whether b is a valid task work mode (break is
// reserved for time blocks).
func ValidBlockType(b BlockType) bool {
	return b == BlockDeep || b == BlockShallow
}

// ProjectStatus is a project's lifecycle state.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on_hold"
)

// KnowledgeSource records where a knowledge entry came from.
type KnowledgeSource string

const (
	SourceManual KnowledgeSource = "manual"
	SourceAIChat KnowledgeSource = "ai-chat"
	SourceImport KnowledgeSource = "import"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Task is a unit of work on the board. SortOrder positions the task
// within its status column; keys need not be contiguous but are strictly
// order-preserving per column.
type Task struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	Priority            Priority  `json:"priority"`
	Status              Status    `json:"status"`
	ProjectID           string    `json:"projectId,omitempty"`
	ContextTags         []string  `json:"contextTags"`
	DueDate             string    `json:"dueDate,omitempty"` // YYYY-MM-DD
	TimeEstimateMinutes *int      `json:"timeEstimateMinutes,omitempty"`
	BlockType           BlockType `json:"blockType,omitempty"`
	SortOrder           int       `json:"sortOrder"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Project groups related tasks. Names are matched case-insensitively by
// the reconciler; uniqueness is best-effort, not schema-enforced.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// KnowledgeEntry is a note in the knowledge base.
type KnowledgeEntry struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Tags      []string        `json:"tags"`
	Source    KnowledgeSource `json:"source"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// InboxItem is a raw capture awaiting (or holding the result of)
// classification. ClassificationResult stores the raw extracted proposal
// as JSON for later inspection.
type InboxItem struct {
	ID                   string    `json:"id"`
	RawInput             string    `json:"rawInput"`
	Processed            bool      `json:"processed"`
	ClassificationResult []byte    `json:"classificationResult,omitempty"`
	TaskID               string    `json:"taskId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// ChatMessage is one turn of the classification conversation. Assistant
// rows carry token usage in Metadata.
type ChatMessage struct {
	ID        string            `json:"id"`
	Role      ChatRole          `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TimeBlock is one slot of a generated daily schedule.
type TimeBlock struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`      // YYYY-MM-DD
	StartTime string    `json:"startTime"` // HH:MM
	EndTime   string    `json:"endTime"`   // HH:MM
	TaskID    string    `json:"taskId,omitempty"`
	BlockType BlockType `json:"blockType"`
	Label     string    `json:"label"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                    TEXT PRIMARY KEY,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	priority              TEXT NOT NULL DEFAULT 'P1',
	status                TEXT NOT NULL DEFAULT 'BACKLOG',
	project_id            TEXT NOT NULL DEFAULT '',
	context_tags          TEXT NOT NULL DEFAULT '[]',
	due_date              TEXT NOT NULL DEFAULT '',
	time_estimate_minutes INTEGER,
	block_type            TEXT NOT NULL DEFAULT '',
	sort_order            INTEGER NOT NULL DEFAULT 0,
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, sort_order);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL DEFAULT 'manual',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_knowledge_updated ON knowledge_entries(updated_at);

CREATE TABLE IF NOT EXISTS inbox_items (
	id                    TEXT PRIMARY KEY,
	raw_input             TEXT NOT NULL,
	processed             INTEGER NOT NULL DEFAULT 0,
	classification_result TEXT,
	task_id               TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inbox_processed ON inbox_items(processed, created_at);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_messages(created_at);

CREATE TABLE IF NOT EXISTS time_blocks (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT NOT NULL,
	task_id    TEXT NOT NULL DEFAULT '',
	block_type TEXT NOT NULL DEFAULT 'deep',
	label      TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timeblocks_date ON time_blocks(date, start_time);
`

// Store persists and retrieves taskdeck entities. The reconciler and the
// HTTP handlers both consume this interface; *SQLiteStore is the only
// production implementation.
type Store interface {
	// Tasks
	CreateTask(t *Task) (string, error)
	GetTask(id string) (*Task, error)
	UpdateTask(t *Task) error
	DeleteTask(id string) error
	ListTasks() ([]*Task, error)
	ListTasksByStatus(status Status) ([]*Task, error)
	CountTasksByStatus(status Status) (int, error)
	ListTasksDueSoon(days int) ([]*Task, error)

	// Projects
	CreateProject(p *Project) (string, error)
	GetProject(id string) (*Project, error)
	UpdateProject(p *Project) error
	DeleteProject(id string) error
	ListProjects() ([]*Project, error)

	// Knowledge
	CreateKnowledge(e *KnowledgeEntry) (string, error)
	GetKnowledge(id string) (*KnowledgeEntry, error)
	UpdateKnowledge(e *KnowledgeEntry) error
	DeleteKnowledge(id string) error
	SearchKnowledge(query string, tags []string) ([]*KnowledgeEntry, error)
	KnowledgeTags() ([]string, error)

	// Inbox
	CreateInboxItem(rawInput string) (*InboxItem, error)
	GetInboxItem(id string) (*InboxItem, error)
	UpdateInboxItem(item *InboxItem) error
	ListInboxItems(processed *bool) ([]*InboxItem, error)
	CountUnprocessedInbox() (int, error)

	// Chat
	AppendChatMessage(m *ChatMessage) (string, error)
	RecentChatMessages(limit int) ([]*ChatMessage, error)

	// Time blocks
	ReplaceTimeBlocksForDate(date string, blocks []*TimeBlock) ([]*TimeBlock, error)
	ListTimeBlocksByDate(date string) ([]*TimeBlock, error)
	GetTimeBlock(id string) (*TimeBlock, error)
	UpdateTimeBlock(b *TimeBlock) error
	DeleteTimeBlock(id string) error
}

// SQLiteStore persists all entities in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) a SQLite database at dbPath and ensures the
// schema exists. The caller is responsible for calling Close.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// newID generates a random entity ID.
func newID() string { return uuid.NewString() }

func now() time.Time { return time.Now().UTC() }

// scanner abstracts sql.Row and sql.Rows for the per-entity scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

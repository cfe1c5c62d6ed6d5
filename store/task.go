package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateTask persists a new task and sets its ID, SortOrder, CreatedAt,
// and UpdatedAt. Missing priority/status fall back to P1/BACKLOG. The
// task is appended to the end of its status column.
func (s *SQLiteStore) CreateTask(t *Task) (string, error) {
	if t.Priority == "" {
		t.Priority = PriorityImportant
	}
	if t.Status == "" {
		t.Status = StatusBacklog
	}
	if t.ContextTags == nil {
		t.ContextTags = []string{}
	}

	var maxOrder sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(sort_order) FROM tasks WHERE status = ?`, string(t.Status),
	).Scan(&maxOrder)
	if err != nil {
		return "", fmt.Errorf("max sort order: %w", err)
	}
	if maxOrder.Valid {
		t.SortOrder = int(maxOrder.Int64) + 1
	} else {
		t.SortOrder = 0
	}

	t.ID = newID()
	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts

	tags, _ := json.Marshal(t.ContextTags)
	_, err = s.db.Exec(`
		INSERT INTO tasks
			(id, title, description, priority, status, project_id, context_tags,
			 due_date, time_estimate_minutes, block_type, sort_order, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status),
		t.ProjectID, string(tags), t.DueDate, nullInt(t.TimeEstimateMinutes),
		string(t.BlockType), t.SortOrder, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// UpdateTask saves changes to an existing task, updating UpdatedAt
// automatically.
func (s *SQLiteStore) UpdateTask(t *Task) error {
	t.UpdatedAt = now()
	tags, _ := json.Marshal(t.ContextTags)
	res, err := s.db.Exec(`
		UPDATE tasks SET
			title=?, description=?, priority=?, status=?, project_id=?, context_tags=?,
			due_date=?, time_estimate_minutes=?, block_type=?, sort_order=?, updated_at=?
		WHERE id=?`,
		t.Title, t.Description, string(t.Priority), string(t.Status),
		t.ProjectID, string(tags), t.DueDate, nullInt(t.TimeEstimateMinutes),
		string(t.BlockType), t.SortOrder, t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task by ID.
func (s *SQLiteStore) DeleteTask(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTasks returns all tasks ordered by status column position.
func (s *SQLiteStore) ListTasks() ([]*Task, error) {
	return s.queryTasks(`SELECT * FROM tasks ORDER BY status, sort_order ASC`)
}

// ListTasksByStatus returns the tasks in one status column, ordered by
// sort key.
func (s *SQLiteStore) ListTasksByStatus(status Status) ([]*Task, error) {
	return s.queryTasks(`SELECT * FROM tasks WHERE status = ? ORDER BY sort_order ASC`, string(status))
}

// CountTasksByStatus reports how many tasks are in the given column.
// The WIP gate uses this for IN_PROGRESS.
func (s *SQLiteStore) CountTasksByStatus(status Status) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// ListTasksDueSoon returns non-done tasks whose due date falls within the
// next N days, ordered by due date.
func (s *SQLiteStore) ListTasksDueSoon(days int) ([]*Task, error) {
	cutoff := now().AddDate(0, 0, days).Format("2006-01-02")
	return s.queryTasks(`
		SELECT * FROM tasks
		WHERE due_date != '' AND due_date <= ? AND status != ?
		ORDER BY due_date ASC`,
		cutoff, string(StatusDone),
	)
}

func (s *SQLiteStore) queryTasks(query string, args ...any) ([]*Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var priority, status, blockType, tagsJSON string
	var estimate sql.NullInt64
	var createdAt, updatedAt time.Time

	err := sc.Scan(
		&t.ID, &t.Title, &t.Description, &priority, &status,
		&t.ProjectID, &tagsJSON, &t.DueDate, &estimate, &blockType,
		&t.SortOrder, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.BlockType = BlockType(blockType)
	t.CreatedAt = createdAt
	t.UpdatedAt = updatedAt
	_ = json.Unmarshal([]byte(tagsJSON), &t.ContextTags)
	if estimate.Valid {
		n := int(estimate.Int64)
		t.TimeEstimateMinutes = &n
	}
	return &t, nil
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

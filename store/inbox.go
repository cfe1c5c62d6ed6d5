package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateInboxItem persists a new unprocessed inbox capture.
func (s *SQLiteStore) CreateInboxItem(rawInput string) (*InboxItem, error) {
	item := &InboxItem{
		ID:        newID(),
		RawInput:  rawInput,
		CreatedAt: now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO inbox_items (id, raw_input, processed, classification_result, task_id, created_at)
		VALUES (?,?,?,?,?,?)`,
		item.ID, item.RawInput, boolInt(item.Processed), nullBytes(item.ClassificationResult),
		item.TaskID, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert inbox item: %w", err)
	}
	return item, nil
}

// GetInboxItem retrieves an inbox item by ID.
func (s *SQLiteStore) GetInboxItem(id string) (*InboxItem, error) {
	row := s.db.QueryRow(`SELECT * FROM inbox_items WHERE id = ?`, id)
	item, err := scanInboxItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inbox item %s: %w", id, ErrNotFound)
	}
	return item, err
}

// UpdateInboxItem saves changes to an inbox item (processed flag,
// classification result, linked task).
func (s *SQLiteStore) UpdateInboxItem(item *InboxItem) error {
	res, err := s.db.Exec(`
		UPDATE inbox_items SET processed=?, classification_result=?, task_id=? WHERE id=?`,
		boolInt(item.Processed), nullBytes(item.ClassificationResult), item.TaskID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update inbox item: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("inbox item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// ListInboxItems returns inbox items newest first, optionally filtered by
// processed state.
func (s *SQLiteStore) ListInboxItems(processed *bool) ([]*InboxItem, error) {
	q := `SELECT * FROM inbox_items ORDER BY created_at DESC`
	args := []any{}
	if processed != nil {
		q = `SELECT * FROM inbox_items WHERE processed = ? ORDER BY created_at DESC`
		args = append(args, boolInt(*processed))
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list inbox items: %w", err)
	}
	defer rows.Close()

	var items []*InboxItem
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountUnprocessedInbox reports how many captures still await
// classification.
func (s *SQLiteStore) CountUnprocessedInbox() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM inbox_items WHERE processed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count inbox items: %w", err)
	}
	return n, nil
}

func scanInboxItem(sc scanner) (*InboxItem, error) {
	var item InboxItem
	var processed int
	var result sql.NullString
	var createdAt time.Time
	err := sc.Scan(&item.ID, &item.RawInput, &processed, &result, &item.TaskID, &createdAt)
	if err != nil {
		return nil, err
	}
	item.Processed = processed != 0
	item.CreatedAt = createdAt
	if result.Valid && result.String != "" {
		item.ClassificationResult = []byte(result.String)
	}
	return &item, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

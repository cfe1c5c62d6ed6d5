package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReplaceTimeBlocksForDate deletes any existing blocks for the date and
// inserts the given ones in order. Deliberately not transactional: the
// schedule flow tolerates partial application the same way the
// reconciler does.
func (s *SQLiteStore) ReplaceTimeBlocksForDate(date string, blocks []*TimeBlock) ([]*TimeBlock, error) {
	if _, err := s.db.Exec(`DELETE FROM time_blocks WHERE date = ?`, date); err != nil {
		return nil, fmt.Errorf("clear time blocks: %w", err)
	}

	for i, b := range blocks {
		b.ID = newID()
		b.Date = date
		b.SortOrder = i
		b.CreatedAt = now()
		if b.BlockType == "" {
			b.BlockType = BlockDeep
		}
		_, err := s.db.Exec(`
			INSERT INTO time_blocks (id, date, start_time, end_time, task_id, block_type, label, sort_order, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			b.ID, b.Date, b.StartTime, b.EndTime, b.TaskID, string(b.BlockType),
			b.Label, b.SortOrder, b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert time block %d: %w", i, err)
		}
	}
	return blocks, nil
}

// GetTimeBlock retrieves a single block by ID.
func (s *SQLiteStore) GetTimeBlock(id string) (*TimeBlock, error) {
	row := s.db.QueryRow(`SELECT * FROM time_blocks WHERE id = ?`, id)
	b, err := scanTimeBlock(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time block %s: %w", id, ErrNotFound)
	}
	return b, err
}

// UpdateTimeBlock saves manual adjustments to a generated block.
func (s *SQLiteStore) UpdateTimeBlock(b *TimeBlock) error {
	res, err := s.db.Exec(`
		UPDATE time_blocks SET start_time=?, end_time=?, task_id=?, block_type=?, label=?, sort_order=?
		WHERE id=?`,
		b.StartTime, b.EndTime, b.TaskID, string(b.BlockType), b.Label, b.SortOrder, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update time block: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("time block %s: %w", b.ID, ErrNotFound)
	}
	return nil
}

// DeleteTimeBlock removes a single block by ID.
func (s *SQLiteStore) DeleteTimeBlock(id string) error {
	res, err := s.db.Exec(`DELETE FROM time_blocks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("time block %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTimeBlocksByDate returns a day's schedule in start-time order.
func (s *SQLiteStore) ListTimeBlocksByDate(date string) ([]*TimeBlock, error) {
	rows, err := s.db.Query(
		`SELECT * FROM time_blocks WHERE date = ? ORDER BY sort_order ASC, start_time ASC`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*TimeBlock
	for rows.Next() {
		b, err := scanTimeBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func scanTimeBlock(sc scanner) (*TimeBlock, error) {
	var b TimeBlock
	var blockType string
	var createdAt time.Time
	err := sc.Scan(&b.ID, &b.Date, &b.StartTime, &b.EndTime, &b.TaskID,
		&blockType, &b.Label, &b.SortOrder, &createdAt)
	if err != nil {
		return nil, err
	}
	b.BlockType = BlockType(blockType)
	b.CreatedAt = createdAt
	return &b, nil
}

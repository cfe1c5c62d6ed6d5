package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// AppendChatMessage persists one conversation turn.
func (s *SQLiteStore) AppendChatMessage(m *ChatMessage) (string, error) {
	m.ID = newID()
	m.CreatedAt = now()
	if m.Metadata == nil {
		m.Metadata = map[string]string{}
	}
	meta, _ := json.Marshal(m.Metadata)
	_, err := s.db.Exec(`
		INSERT INTO chat_messages (id, role, content, metadata, created_at)
		VALUES (?,?,?,?,?)`,
		m.ID, string(m.Role), m.Content, string(meta), m.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert chat message: %w", err)
	}
	return m.ID, nil
}

// RecentChatMessages returns the last N turns in chronological order.
// limit <= 0 returns the full history.
func (s *SQLiteStore) RecentChatMessages(limit int) ([]*ChatMessage, error) {
	q := `SELECT * FROM chat_messages ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		var role, meta string
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &role, &m.Content, &meta, &createdAt); err != nil {
			return nil, err
		}
		m.Role = ChatRole(role)
		m.CreatedAt = createdAt
		_ = json.Unmarshal([]byte(meta), &m.Metadata)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows came newest-first; callers want chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"
)

// CreateKnowledge persists a new knowledge entry. Missing source falls
// back to manual.
func (s *SQLiteStore) CreateKnowledge(e *KnowledgeEntry) (string, error) {
	if e.Source == "" {
		e.Source = SourceManual
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	e.ID = newID()
	ts := now()
	e.CreatedAt = ts
	e.UpdatedAt = ts

	tags, _ := json.Marshal(e.Tags)
	_, err := s.db.Exec(`
		INSERT INTO knowledge_entries (id, title, content, tags, source, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.Title, e.Content, string(tags), string(e.Source), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert knowledge entry: %w", err)
	}
	return e.ID, nil
}

// GetKnowledge retrieves a knowledge entry by ID.
func (s *SQLiteStore) GetKnowledge(id string) (*KnowledgeEntry, error) {
	row := s.db.QueryRow(`SELECT * FROM knowledge_entries WHERE id = ?`, id)
	e, err := scanKnowledge(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("knowledge entry %s: %w", id, ErrNotFound)
	}
	return e, err
}

// UpdateKnowledge saves changes to an existing entry.
func (s *SQLiteStore) UpdateKnowledge(e *KnowledgeEntry) error {
	e.UpdatedAt = now()
	tags, _ := json.Marshal(e.Tags)
	res, err := s.db.Exec(`
		UPDATE knowledge_entries SET title=?, content=?, tags=?, source=?, updated_at=? WHERE id=?`,
		e.Title, e.Content, string(tags), string(e.Source), e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update knowledge entry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("knowledge entry %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// DeleteKnowledge removes an entry by ID.
func (s *SQLiteStore) DeleteKnowledge(id string) error {
	res, err := s.db.Exec(`DELETE FROM knowledge_entries WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete knowledge entry: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("knowledge entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// SearchKnowledge returns entries ordered by recency. A non-empty query
// substring-matches title or content; tags keep entries carrying at
// least one of the given tags.
func (s *SQLiteStore) SearchKnowledge(query string, tags []string) ([]*KnowledgeEntry, error) {
	q := `SELECT * FROM knowledge_entries ORDER BY updated_at DESC`
	args := []any{}
	if query != "" {
		q = `SELECT * FROM knowledge_entries
			WHERE title LIKE ? OR content LIKE ?
			ORDER BY updated_at DESC`
		like := "%" + query + "%"
		args = append(args, like, like)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	defer rows.Close()

	var entries []*KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 && !hasAnyTag(e.Tags, tags) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// KnowledgeTags returns the sorted set of all tags in use.
func (s *SQLiteStore) KnowledgeTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM knowledge_entries`)
	if err != nil {
		return nil, fmt.Errorf("list knowledge tags: %w", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		var tags []string
		_ = json.Unmarshal([]byte(tagsJSON), &tags)
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func scanKnowledge(sc scanner) (*KnowledgeEntry, error) {
	var e KnowledgeEntry
	var tagsJSON, source string
	var createdAt, updatedAt time.Time
	err := sc.Scan(&e.ID, &e.Title, &e.Content, &tagsJSON, &source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	e.Source = KnowledgeSource(source)
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	_ = json.Unmarshal([]byte(tagsJSON), &e.Tags)
	return &e, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateProject persists a new project and sets its ID and timestamps.
// Missing status falls back to active.
func (s *SQLiteStore) CreateProject(p *Project) (string, error) {
	if p.Status == "" {
		p.Status = ProjectActive
	}
	p.ID = newID()
	ts := now()
	p.CreatedAt = ts
	p.UpdatedAt = ts

	_, err := s.db.Exec(`
		INSERT INTO projects (id, name, description, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, p.Description, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return p.ID, nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(`SELECT * FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, err
}

// UpdateProject saves changes to an existing project.
func (s *SQLiteStore) UpdateProject(p *Project) error {
	p.UpdatedAt = now()
	res, err := s.db.Exec(`
		UPDATE projects SET name=?, description=?, status=?, updated_at=? WHERE id=?`,
		p.Name, p.Description, string(p.Status), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project by ID. Tasks keep their project_id;
// dangling references render as "no project".
func (s *SQLiteStore) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListProjects returns all projects ordered by name.
func (s *SQLiteStore) ListProjects() ([]*Project, error) {
	rows, err := s.db.Query(`SELECT * FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func scanProject(sc scanner) (*Project, error) {
	var p Project
	var status string
	var createdAt, updatedAt time.Time
	err := sc.Scan(&p.ID, &p.Name, &p.Description, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = ProjectStatus(status)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}

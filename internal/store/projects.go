package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

const projectColumns = `id, name, description, status, priority, start_date, end_date, created_at, updated_at`

// CreateProject inserts a new project and returns it with its assigned
// ID.
func (s *SQLite) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	if p.Priority == 0 {
		p.Priority = 3
	}
	if p.StartDate == nil {
		now := time.Now().UTC()
		p.StartDate = &now
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, description, status, priority, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.Status, p.Priority, p.StartDate, p.EndDate)
	if err != nil {
		return domain.Project{}, fmt.Errorf("inserting project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Project{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject retrieves a project by ID. Returns ErrNotFound if it does
// not exist.
func (s *SQLite) GetProject(ctx context.Context, projectID int64) (domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return domain.Project{}, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("querying project %d: %w", projectID, err)
	}
	return p, nil
}

// ListProjects returns all projects, oldest first.
func (s *SQLite) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject replaces a project's mutable fields and returns the
// stored project. Returns ErrNotFound if it does not exist.
func (s *SQLite) UpdateProject(ctx context.Context, projectID int64, p domain.Project) (domain.Project, error) {
	if p.Status == "" {
		p.Status = domain.ProjectActive
	}
	if p.Priority == 0 {
		p.Priority = 3
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, status = ?, priority = ?, start_date = COALESCE(?, start_date),
		    end_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Description, p.Status, p.Priority, p.StartDate, p.EndDate, projectID)
	if err != nil {
		return domain.Project{}, fmt.Errorf("updating project %d: %w", projectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Project{}, fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Project{}, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}

	return s.GetProject(ctx, projectID)
}

// DeleteProject removes a project. Its tasks cascade away with it.
func (s *SQLite) DeleteProject(ctx context.Context, projectID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("deleting project %d: %w", projectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	return nil
}

// ProjectProgress reports task completion counts for one project.
// Returns ErrNotFound if the project does not exist.
func (s *SQLite) ProjectProgress(ctx context.Context, projectID int64) (domain.ProjectProgress, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return domain.ProjectProgress{}, err
	}

	var progress domain.ProjectProgress
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(status = 'completed'), 0)
		FROM tasks WHERE project_id = ?
	`, projectID).Scan(&progress.Total, &progress.Completed)
	if err != nil {
		return domain.ProjectProgress{}, fmt.Errorf("querying progress for project %d: %w", projectID, err)
	}

	if progress.Total > 0 {
		progress.Progress = float64(progress.Completed) / float64(progress.Total) * 100
	}
	return progress, nil
}

func scanProject(sc scanner) (domain.Project, error) {
	var p domain.Project
	var startDate, endDate sql.NullTime

	err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Priority,
		&startDate, &endDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, err
	}

	if startDate.Valid {
		d := startDate.Time
		p.StartDate = &d
	}
	if endDate.Valid {
		d := endDate.Time
		p.EndDate = &d
	}
	return p, nil
}

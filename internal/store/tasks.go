package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskpilot/taskpilot/internal/domain"
)

const taskColumns = `id, title, description, status, priority, project_id, assigned_to, due_date, completed_at, processing_seconds, created_at, updated_at`

// CreateTask inserts a new task and returns it with its assigned ID.
func (s *SQLite) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if t.Priority == 0 {
		t.Priority = 3
	}
	if t.ProjectID != nil {
		if _, err := s.GetProject(ctx, *t.ProjectID); err != nil {
			return domain.Task{}, err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, priority, project_id, assigned_to, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Description, string(t.Status), t.Priority, t.ProjectID, t.AssignedTo, t.DueDate)
	if err != nil {
		return domain.Task{}, fmt.Errorf("inserting task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by ID. Returns ErrNotFound if it does not
// exist.
func (s *SQLite) GetTask(ctx context.Context, taskID int64) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("querying task %d: %w", taskID, err)
	}
	return t, nil
}

// ListOptions filters ListTasks.
type ListOptions struct {
	Status    domain.TaskStatus
	ProjectID *int64
}

// ListTasks returns tasks matching the given options, oldest first.
func (s *SQLite) ListTasks(ctx context.Context, opts ListOptions) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *opts.ProjectID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// ListPendingTasks returns all tasks in pending status.
func (s *SQLite) ListPendingTasks(ctx context.Context) ([]domain.Task, error) {
	return s.ListTasks(ctx, ListOptions{Status: domain.StatusPending})
}

// UpdateTask applies a partial update and returns the stored task.
// Returns ErrNotFound if the task does not exist.
func (s *SQLite) UpdateTask(ctx context.Context, taskID int64, upd TaskUpdate) (domain.Task, error) {
	query := `UPDATE tasks SET updated_at = CURRENT_TIMESTAMP`
	var args []any

	if upd.Status != nil {
		query += ", status = ?"
		args = append(args, string(*upd.Status))
	}
	if upd.Priority != nil {
		query += ", priority = ?"
		args = append(args, *upd.Priority)
	}
	if upd.CompletedAt != nil {
		query += ", completed_at = ?"
		args = append(args, *upd.CompletedAt)
	}
	if upd.ProcessingSeconds != nil {
		query += ", processing_seconds = ?"
		args = append(args, *upd.ProcessingSeconds)
	}

	query += " WHERE id = ?"
	args = append(args, taskID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Task{}, fmt.Errorf("updating task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Task{}, fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Task{}, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}

	return s.GetTask(ctx, taskID)
}

// DeleteTask removes a task. Dependencies referencing it cascade.
func (s *SQLite) DeleteTask(ctx context.Context, taskID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

// AddDependency records a dependency edge. Inserting the same edge
// twice is idempotent.
func (s *SQLite) AddDependency(ctx context.Context, dep domain.Dependency) error {
	if dep.Kind == "" {
		dep.Kind = domain.FinishToStart
	}

	// Both endpoints must exist; the foreign keys enforce this, but a
	// readable error beats a constraint failure.
	for _, id := range []int64{dep.TaskID, dep.DependsOnID} {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking task %d: %w", id, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_dependencies (task_id, depends_on_id, kind)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id, depends_on_id) DO UPDATE SET kind = excluded.kind
	`, dep.TaskID, dep.DependsOnID, string(dep.Kind))
	if err != nil {
		return fmt.Errorf("inserting dependency %d -> %d: %w", dep.DependsOnID, dep.TaskID, err)
	}
	return nil
}

// GetDependencies returns the dependency edges for one task.
func (s *SQLite) GetDependencies(ctx context.Context, taskID int64) ([]domain.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, depends_on_id, kind
		FROM task_dependencies
		WHERE task_id = ?
		ORDER BY depends_on_id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying dependencies for task %d: %w", taskID, err)
	}
	defer rows.Close()

	deps := []domain.Dependency{}
	for rows.Next() {
		var d domain.Dependency
		var kind string
		if err := rows.Scan(&d.TaskID, &d.DependsOnID, &kind); err != nil {
			return nil, fmt.Errorf("scanning dependency: %w", err)
		}
		d.Kind = domain.DependencyKind(kind)
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependencies: %w", err)
	}
	return deps, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (domain.Task, error) {
	var t domain.Task
	var status string
	var projectID sql.NullInt64
	var assignedTo sql.NullString
	var dueDate, completedAt sql.NullTime

	err := sc.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Priority,
		&projectID, &assignedTo, &dueDate, &completedAt,
		&t.ProcessingSeconds, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}

	t.Status = domain.TaskStatus(status)
	if projectID.Valid {
		t.ProjectID = &projectID.Int64
	}
	if assignedTo.Valid {
		t.AssignedTo = assignedTo.String
	}
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return t, nil
}

// RecordRunMetrics persists one run summary record.
func (s *SQLite) RecordRunMetrics(ctx context.Context, m domain.RunMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_metrics (flow_name, run_id, start_time, end_time, status, tasks_processed, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.FlowName, m.RunID, m.StartedAt, m.EndedAt, m.Status, m.TasksProcessed, m.Errors)
	if err != nil {
		return fmt.Errorf("inserting run metrics %s: %w", m.RunID, err)
	}
	return nil
}

// ListRunMetrics returns recorded run summaries, newest first.
func (s *SQLite) ListRunMetrics(ctx context.Context, limit int) ([]domain.RunMetrics, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_name, run_id, start_time, end_time, status, tasks_processed, errors
		FROM workflow_metrics
		ORDER BY start_time DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.RunMetrics
	for rows.Next() {
		var m domain.RunMetrics
		if err := rows.Scan(&m.FlowName, &m.RunID, &m.StartedAt, &m.EndedAt, &m.Status, &m.TasksProcessed, &m.Errors); err != nil {
			return nil, fmt.Errorf("scanning run metrics: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run metrics: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewMemory(context.Background())
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *SQLite, task domain.Task) domain.Task {
	t.Helper()
	created, err := s.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return created
}

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)

	created := mustCreate(t, s, domain.Task{Title: "write report"})

	if created.ID == 0 {
		t.Error("expected assigned id")
	}
	if created.Status != domain.StatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.Priority != 3 {
		t.Errorf("priority = %d, want default 3", created.Priority)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not populated")
	}
}

func TestCreateTaskRoundtrip(t *testing.T) {
	s := newTestStore(t)

	project, err := s.CreateProject(context.Background(), domain.Project{Name: "launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := mustCreate(t, s, domain.Task{
		Title:       "review PR",
		Description: "check the migration",
		Priority:    5,
		ProjectID:   &project.ID,
		AssignedTo:  "dana",
		DueDate:     &due,
	})

	got, err := s.GetTask(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "review PR" || got.Description != "check the migration" {
		t.Errorf("unexpected task %+v", got)
	}
	if got.Priority != 5 || got.AssignedTo != "dana" {
		t.Errorf("priority/assignee = %d/%q", got.Priority, got.AssignedTo)
	}
	if got.ProjectID == nil || *got.ProjectID != project.ID {
		t.Errorf("project id = %v, want %d", got.ProjectID, project.ID)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTask(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListTasksFilters(t *testing.T) {
	s := newTestStore(t)

	project, err := s.CreateProject(context.Background(), domain.Project{Name: "filters"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	projectID := project.ID
	mustCreate(t, s, domain.Task{Title: "a", ProjectID: &projectID})
	b := mustCreate(t, s, domain.Task{Title: "b"})
	mustCreate(t, s, domain.Task{Title: "c", ProjectID: &projectID})

	status := domain.StatusCompleted
	if _, err := s.UpdateTask(context.Background(), b.ID, TaskUpdate{Status: &status}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"a", "b", "c"}},
		{"pending only", ListOptions{Status: domain.StatusPending}, []string{"a", "c"}},
		{"completed only", ListOptions{Status: domain.StatusCompleted}, []string{"b"}},
		{"by project", ListOptions{ProjectID: &projectID}, []string{"a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTasks(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("ListTasks: %v", err)
			}
			var titles []string
			for _, task := range got {
				titles = append(titles, task.Title)
			}
			if len(titles) != len(tt.want) {
				t.Fatalf("titles = %v, want %v", titles, tt.want)
			}
			for i := range tt.want {
				if titles[i] != tt.want[i] {
					t.Fatalf("titles = %v, want %v", titles, tt.want)
				}
			}
		})
	}
}

func TestUpdateTaskPartial(t *testing.T) {
	s := newTestStore(t)
	created := mustCreate(t, s, domain.Task{Title: "partial", Priority: 2})

	status := domain.StatusInProgress
	got, err := s.UpdateTask(context.Background(), created.ID, TaskUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Status != domain.StatusInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
	// Untouched fields survive a partial update.
	if got.Priority != 2 {
		t.Errorf("priority = %d, want 2", got.Priority)
	}

	done := domain.StatusCompleted
	completedAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	seconds := 1.25
	got, err = s.UpdateTask(context.Background(), created.ID, TaskUpdate{
		Status:            &done,
		CompletedAt:       &completedAt,
		ProcessingSeconds: &seconds,
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completedAt) {
		t.Errorf("completed at = %v, want %v", got.CompletedAt, completedAt)
	}
	if got.ProcessingSeconds != 1.25 {
		t.Errorf("processing seconds = %v, want 1.25", got.ProcessingSeconds)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	s := newTestStore(t)

	status := domain.StatusCompleted
	_, err := s.UpdateTask(context.Background(), 999, TaskUpdate{Status: &status})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskCascadesDependencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, domain.Task{Title: "a"})
	b := mustCreate(t, s, domain.Task{Title: "b"})
	if err := s.AddDependency(ctx, domain.Dependency{TaskID: b.ID, DependsOnID: a.ID}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	if err := s.DeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	deps, err := s.GetDependencies(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("dependencies = %v, want none after cascade", deps)
	}

	if err := s.DeleteTask(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestAddDependency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, domain.Task{Title: "a"})
	b := mustCreate(t, s, domain.Task{Title: "b"})

	dep := domain.Dependency{TaskID: b.ID, DependsOnID: a.ID}
	if err := s.AddDependency(ctx, dep); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	// Re-adding the same edge is idempotent.
	if err := s.AddDependency(ctx, dep); err != nil {
		t.Fatalf("AddDependency again: %v", err)
	}

	deps, err := s.GetDependencies(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if len(deps) != 1 {
		t.Fatalf("dependencies = %v, want exactly one", deps)
	}
	if deps[0].DependsOnID != a.ID || deps[0].Kind != domain.FinishToStart {
		t.Errorf("dependency = %+v", deps[0])
	}

	if err := s.AddDependency(ctx, domain.Dependency{TaskID: b.ID, DependsOnID: 999}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown endpoint err = %v, want ErrNotFound", err)
	}
}

func TestRunMetricsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m := domain.RunMetrics{
			FlowName:       "Task Processing Flow",
			RunID:          domain.NewRunID(base.Add(time.Duration(i) * time.Minute)),
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EndedAt:        base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Status:         domain.RunCompleted,
			TasksProcessed: i,
		}
		if err := s.RecordRunMetrics(ctx, m); err != nil {
			t.Fatalf("RecordRunMetrics: %v", err)
		}
	}

	got, err := s.ListRunMetrics(ctx, 2)
	if err != nil {
		t.Fatalf("ListRunMetrics: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2 (limit)", len(got))
	}
	if got[0].TasksProcessed != 2 || got[1].TasksProcessed != 1 {
		t.Errorf("order = [%d %d], want newest first [2 1]",
			got[0].TasksProcessed, got[1].TasksProcessed)
	}
}

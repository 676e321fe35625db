package scheduler

import (
	"context"
	"sync"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/store"
)

// fakeStore is an in-memory store.Store with scriptable failures.
type fakeStore struct {
	mu sync.Mutex

	pending []domain.Task
	tasks   map[int64]domain.Task
	deps    map[int64][]domain.Dependency

	listErr        error
	depErrs        map[int64]bool
	updateFailures map[int64]int // remaining UpdateTask failures per task

	updates []updateRecord
	metrics []domain.RunMetrics
}

type updateRecord struct {
	taskID int64
	upd    store.TaskUpdate
}

func newFakeStore(tasks ...domain.Task) *fakeStore {
	s := &fakeStore{
		tasks:          make(map[int64]domain.Task),
		deps:           make(map[int64][]domain.Dependency),
		depErrs:        make(map[int64]bool),
		updateFailures: make(map[int64]int),
	}
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = domain.StatusPending
		}
		if t.Priority == 0 {
			t.Priority = 3
		}
		s.pending = append(s.pending, t)
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeStore) addDep(taskID, dependsOn int64) {
	s.deps[taskID] = append(s.deps[taskID], domain.Dependency{
		TaskID:      taskID,
		DependsOnID: dependsOn,
		Kind:        domain.FinishToStart,
	})
}

func (s *fakeStore) ListPendingTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Task(nil), s.pending...), nil
}

func (s *fakeStore) GetDependencies(ctx context.Context, taskID int64) ([]domain.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depErrs[taskID] {
		return nil, store.ErrUnavailable
	}
	return s.deps[taskID], nil
}

func (s *fakeStore) UpdateTask(ctx context.Context, taskID int64, upd store.TaskUpdate) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateFailures[taskID] > 0 {
		s.updateFailures[taskID]--
		return domain.Task{}, store.ErrUnavailable
	}

	t, ok := s.tasks[taskID]
	if !ok {
		return domain.Task{}, store.ErrNotFound
	}

	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.CompletedAt != nil {
		c := *upd.CompletedAt
		t.CompletedAt = &c
	}
	if upd.ProcessingSeconds != nil {
		t.ProcessingSeconds = *upd.ProcessingSeconds
	}

	s.tasks[taskID] = t
	s.updates = append(s.updates, updateRecord{taskID: taskID, upd: upd})
	return t, nil
}

func (s *fakeStore) RecordRunMetrics(ctx context.Context, m domain.RunMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
	return nil
}

// completionOrder returns task ids in the order they were marked
// completed.
func (s *fakeStore) completionOrder() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var order []int64
	for _, rec := range s.updates {
		if rec.upd.Status != nil && *rec.upd.Status == domain.StatusCompleted {
			order = append(order, rec.taskID)
		}
	}
	return order
}

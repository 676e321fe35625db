package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/domain"
)

func quickRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Delay: time.Millisecond}
}

func instantWorker() Worker {
	return WorkerFunc(func(ctx context.Context, task domain.Task) (time.Duration, error) {
		return 5 * time.Millisecond, nil
	})
}

// scorerFunc adapts a function to scoring.Scorer.
type scorerFunc func(ctx context.Context, description string) (float64, error)

func (f scorerFunc) Score(ctx context.Context, description string) (float64, error) {
	return f(ctx, description)
}

func TestExecutorCompletesTask(t *testing.T) {
	st := newFakeStore(domain.Task{ID: 1, Title: "build", Priority: 3})

	exec := NewExecutor(ExecutorConfig{
		Store:  st,
		Worker: instantWorker(),
		Retry:  quickRetry(),
		Logger: zerolog.Nop(),
	})

	done, err := exec.Execute(context.Background(), st.tasks[1])
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if done.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
	if done.ProcessingSeconds <= 0 {
		t.Errorf("ProcessingSeconds = %v, want > 0", done.ProcessingSeconds)
	}

	// First update moves the task to in_progress, second completes it.
	if len(st.updates) != 2 {
		t.Fatalf("update count = %d, want 2", len(st.updates))
	}
	if got := *st.updates[0].upd.Status; got != domain.StatusInProgress {
		t.Errorf("first update status = %q, want in_progress", got)
	}
}

func TestExecutorRetriesPersistence(t *testing.T) {
	st := newFakeStore(domain.Task{ID: 1, Priority: 3})
	// Fail twice; the third attempt, still within the two-retry
	// budget, succeeds.
	st.updateFailures[1] = 2

	exec := NewExecutor(ExecutorConfig{
		Store:  st,
		Worker: instantWorker(),
		Retry:  quickRetry(),
		Logger: zerolog.Nop(),
	})

	done, err := exec.Execute(context.Background(), st.tasks[1])
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
}

func TestExecutorGivesUpPastRetryBudget(t *testing.T) {
	st := newFakeStore(domain.Task{ID: 1, Priority: 3})
	st.updateFailures[1] = 5

	exec := NewExecutor(ExecutorConfig{
		Store:  st,
		Worker: instantWorker(),
		Retry:  quickRetry(),
		Logger: zerolog.Nop(),
	})

	_, err := exec.Execute(context.Background(), st.tasks[1])
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "begin processing") {
		t.Errorf("error %q should name the failing step", err)
	}
	if st.tasks[1].Status != domain.StatusPending {
		t.Errorf("status = %q, want pending (last persisted state)", st.tasks[1].Status)
	}
}

func TestExecutorWorkerFailureSurfaces(t *testing.T) {
	st := newFakeStore(domain.Task{ID: 1, Priority: 3})

	failing := WorkerFunc(func(ctx context.Context, task domain.Task) (time.Duration, error) {
		return 0, errors.New("work exploded")
	})

	exec := NewExecutor(ExecutorConfig{
		Store:  st,
		Worker: failing,
		Retry:  quickRetry(),
		Logger: zerolog.Nop(),
	})

	_, err := exec.Execute(context.Background(), st.tasks[1])
	if err == nil {
		t.Fatal("expected error from failing worker")
	}
	// The task began processing but never completed.
	if st.tasks[1].Status != domain.StatusInProgress {
		t.Errorf("status = %q, want in_progress", st.tasks[1].Status)
	}
}

func TestExecutorPersistsKeywordPriority(t *testing.T) {
	st := newFakeStore(domain.Task{ID: 1, Description: "This is urgent, please fix ASAP", Priority: 2})

	exec := NewExecutor(ExecutorConfig{
		Store:  st,
		Worker: instantWorker(),
		Retry:  quickRetry(),
		Logger: zerolog.Nop(),
	})

	done, err := exec.Execute(context.Background(), st.tasks[1])
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Priority != 4 {
		t.Errorf("priority = %d, want 4", done.Priority)
	}
}

func TestExecutorScoringHint(t *testing.T) {
	tests := []struct {
		name   string
		scorer scorerFunc
		want   int
	}{
		{
			name: "hint raises priority",
			scorer: func(ctx context.Context, description string) (float64, error) {
				return 5, nil
			},
			want: 5,
		},
		{
			name: "hint never lowers priority",
			scorer: func(ctx context.Context, description string) (float64, error) {
				return 1, nil
			},
			want: 3,
		},
		{
			name: "scorer failure means no hint",
			scorer: func(ctx context.Context, description string) (float64, error) {
				return 0, errors.New("scoring service down")
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore(domain.Task{ID: 1, Description: "routine cleanup", Priority: 3})

			exec := NewExecutor(ExecutorConfig{
				Store:  st,
				Worker: instantWorker(),
				Scorer: tt.scorer,
				Retry:  quickRetry(),
				Logger: zerolog.Nop(),
			})

			done, err := exec.Execute(context.Background(), st.tasks[1])
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if done.Priority != tt.want {
				t.Errorf("priority = %d, want %d", done.Priority, tt.want)
			}
		})
	}
}

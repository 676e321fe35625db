package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/events"
	"github.com/taskpilot/taskpilot/internal/store"
)

func TestConsumeEventsLogsProgress(t *testing.T) {
	bus := events.NewBus()
	ch := bus.SubscribeAll(16)

	bus.Publish(events.TopicRun, events.RunStartedEvent{RunID: "run_x", Pending: 2})
	bus.Publish(events.TopicTask, events.TaskStartedEvent{TaskID: 1, Title: "build"})
	bus.Publish(events.TopicTask, events.TaskCompletedEvent{TaskID: 1, Duration: time.Second})
	bus.Publish(events.TopicTask, events.TaskFailedEvent{TaskID: 2, Title: "deploy", Err: errors.New("boom")})
	bus.Publish(events.TopicTask, events.TaskSkippedEvent{TaskID: 3, Title: "blocked"})
	bus.Close()

	var buf bytes.Buffer
	consumeEvents(ch, zerolog.New(&buf))

	out := buf.String()
	for _, want := range []string{
		"run started",
		"task started",
		"task completed",
		"task failed",
		"task skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildCoordinatorWiresBus(t *testing.T) {
	st, err := store.NewMemory(context.Background())
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	bus := events.NewBus()
	t.Cleanup(bus.Close)
	ch := bus.SubscribeAll(16)

	cfg := &config.Config{WorkDuration: time.Millisecond, RetryDelay: time.Millisecond}
	coord := buildCoordinator(cfg, st, bus)

	if _, err := coord.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// Even an empty run announces itself on the bus.
	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-ch:
			types[e.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for run events")
		}
	}
	if !types[events.EventTypeRunStarted] || !types[events.EventTypeRunFinished] {
		t.Errorf("event types = %v, want run.started and run.finished", types)
	}
}

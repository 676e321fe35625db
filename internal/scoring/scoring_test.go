package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict-priority" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body["description"] != "urgent deploy" {
			t.Errorf("description = %q", body["description"])
		}
		json.NewEncoder(w).Encode(map[string]float64{"priority_score": 4.5})
	}))
	t.Cleanup(srv.Close)

	score, err := NewClient(srv.URL).Score(context.Background(), "urgent deploy")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 4.5 {
		t.Errorf("score = %v, want 4.5", score)
	}
}

func TestClientScoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewClient(srv.URL).Score(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

// flakyScorer fails until its budget of failures is spent.
type flakyScorer struct {
	failures int
	calls    int
}

func (f *flakyScorer) Score(ctx context.Context, description string) (float64, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("service down")
	}
	return 3, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyScorer{failures: 100}
	b := NewBreaker(inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Score(ctx, "x"); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	callsBefore := inner.calls
	if _, err := b.Score(ctx, "x"); err == nil {
		t.Fatal("expected open-circuit error")
	}
	// The open circuit short-circuits without touching the service.
	if inner.calls != callsBefore {
		t.Errorf("inner calls = %d, want %d (no probe while open)", inner.calls, callsBefore)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := NewBreaker(&flakyScorer{})

	score, err := b.Score(context.Background(), "x")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 3 {
		t.Errorf("score = %v, want 3", score)
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	cancelled := &cancellingScorer{}
	b := NewBreaker(cancelled)
	ctx := context.Background()

	// Far more cancellations than the trip threshold.
	for i := 0; i < 10; i++ {
		if _, err := b.Score(ctx, "x"); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: err = %v, want context.Canceled", i, err)
		}
	}
	// Still closed: every call reached the scorer.
	if cancelled.calls != 10 {
		t.Errorf("inner calls = %d, want 10", cancelled.calls)
	}
}

type cancellingScorer struct {
	calls int
}

func (c *cancellingScorer) Score(ctx context.Context, description string) (float64, error) {
	c.calls++
	return 0, context.Canceled
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock drives the poller deterministically: every sleep is recorded and
// advances the fake time instead of blocking
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.sleeps = append(clock.sleeps, d)
	clock.now = clock.now.Add(d)
	return nil
}

// newPollTestClient creates a client with production-like polling parameters
// driven by a fake clock
func newPollTestClient(server *httptest.Server, clock *fakeClock) *Client {
	client := New(Options{
		BaseURL:         server.URL,
		Scope:           ScopeProcess,
		Username:        "manager",
		Password:        "secret",
		MinPollInterval: 2 * time.Second,
		MaxPollInterval: 10 * time.Second,
		TaskTimeout:     300 * time.Second,
	})
	client.now = clock.Now
	client.sleep = clock.Sleep
	return client
}

// pollServer serves the token endpoint plus a task status endpoint whose
// responses are produced by the given function, indexed by poll count
func pollServer(status func(poll int32) (int, string)) *httptest.Server {
	var logins, polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", tokenEndpoint(&logins, "tok"))
	mux.HandleFunc("/api/v1/document_extractions/task-1", func(rw http.ResponseWriter, _ *http.Request) {
		code, body := status(atomic.AddInt32(&polls, 1))
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)
		rw.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func TestPollBackoffSequence(t *testing.T) {
	server := pollServer(func(poll int32) (int, string) {
		if poll <= 6 {
			return http.StatusOK, `{"task_id":"task-1","status":"PROCESSING"}`
		}
		return http.StatusOK, `{"task_id":"task-1","status":"COMPLETED","data":{"snils_number":"12345678900"}}`
	})
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()

	var laps []int
	status, err := client.WaitForExtraction(context.Background(), ProcessIdentity, "task-1", func(lap int) {
		laps = append(laps, lap)
	})
	if err != nil {
		t.Fatalf("wait for extraction: %v", err)
	}
	if status.Status != StatusCompleted {
		t.Fatalf("unexpected terminal status: %s", status.Status)
	}

	want := []time.Duration{
		2 * time.Second,
		3 * time.Second,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10 * time.Second,
		10 * time.Second,
	}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %d (%v)", len(want), len(clock.sleeps), clock.sleeps)
	}
	for i, sleep := range clock.sleeps {
		if sleep != want[i] {
			t.Errorf("sleep %d: expected %s, got %s", i, want[i], sleep)
		}
	}

	if len(laps) != 7 {
		t.Fatalf("expected 7 progress laps, got %d", len(laps))
	}
	for i, lap := range laps {
		if lap != i {
			t.Errorf("progress lap %d reported as %d", i, lap)
		}
	}
}

func TestPollReturnsOnFirstTerminalStatus(t *testing.T) {
	var polls int32
	server := pollServer(func(poll int32) (int, string) {
		atomic.StoreInt32(&polls, poll)
		return http.StatusOK, `{"task_id":"task-1","status":"FAILED","error":"image unreadable"}`
	})
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()

	status, err := client.WaitForExtraction(context.Background(), ProcessIdentity, "task-1", nil)
	if err != nil {
		t.Fatalf("wait for extraction: %v", err)
	}
	if status.Status != StatusFailed {
		t.Fatalf("unexpected terminal status: %s", status.Status)
	}
	if status.Error != "image unreadable" {
		t.Fatalf("unexpected task error: %s", status.Error)
	}
	if polls != 1 {
		t.Fatalf("expected no further requests after a terminal status, got %d", polls)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", clock.sleeps)
	}
}

func TestPollNegativeAdjudicationOutcomeIsTerminal(t *testing.T) {
	var logins, polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", tokenEndpoint(&logins, "tok"))
	mux.HandleFunc("/api/v1/cases/7/status", func(rw http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&polls, 1)
		rw.Write([]byte(`{"case_id":7,"final_status":"DOES NOT MEET CRITERIA","explanation":"insufficient pension points"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()

	status, err := client.WaitForCase(context.Background(), ProcessIdentity, 7, nil)
	if err != nil {
		t.Fatalf("a negative outcome is terminal, not an error: %v", err)
	}
	if status.FinalStatus != StatusDoesNotMeetCriteria {
		t.Fatalf("unexpected final status: %s", status.FinalStatus)
	}
	if polls != 1 {
		t.Fatalf("expected polling to stop after the first terminal poll, got %d", polls)
	}
}

func TestPollToleratesServerErrors(t *testing.T) {
	server := pollServer(func(poll int32) (int, string) {
		if poll <= 2 {
			return http.StatusBadGateway, `{"detail":"upstream overloaded"}`
		}
		return http.StatusOK, `{"task_id":"task-1","status":"COMPLETED"}`
	})
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()

	status, err := client.WaitForExtraction(context.Background(), ProcessIdentity, "task-1", nil)
	if err != nil {
		t.Fatalf("expected server errors during polling to be tolerated, got: %v", err)
	}
	if status.Status != StatusCompleted {
		t.Fatalf("unexpected terminal status: %s", status.Status)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected 2 sleeps across the tolerated errors, got %d", len(clock.sleeps))
	}
}

func TestPollAbortsOnClientError(t *testing.T) {
	var polls int32
	server := pollServer(func(poll int32) (int, string) {
		atomic.StoreInt32(&polls, poll)
		return http.StatusForbidden, `{"detail":"forbidden"}`
	})
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()

	_, err := client.WaitForExtraction(context.Background(), ProcessIdentity, "task-1", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected the 403 to abort polling, got: %v", err)
	}
	if polls != 1 {
		t.Fatalf("expected polling to stop after the first client error, got %d polls", polls)
	}
}

func TestPollTimeout(t *testing.T) {
	server := pollServer(func(int32) (int, string) {
		return http.StatusOK, `{"task_id":"task-1","status":"PROCESSING"}`
	})
	defer server.Close()

	clock := newFakeClock()
	client := newPollTestClient(server, clock)
	defer client.Close()
	start := clock.Now()

	_, err := client.WaitForExtraction(context.Background(), ProcessIdentity, "task-1", nil)
	var timeoutErr *TaskTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected a TaskTimeoutError, got: %v", err)
	}

	// The timeout must fire within one poll interval of the ceiling
	elapsed := clock.Now().Sub(start)
	if elapsed < client.taskTimeout {
		t.Fatalf("timeout fired early: %s elapsed of %s", elapsed, client.taskTimeout)
	}
	if elapsed > client.taskTimeout+client.maxInterval {
		t.Fatalf("timeout fired late: %s elapsed of %s", elapsed, client.taskTimeout)
	}
}

func TestNextIntervalCapsAtMax(t *testing.T) {
	interval := 2 * time.Second
	max := 10 * time.Second
	var sequence []string
	for i := 0; i < 7; i++ {
		sequence = append(sequence, interval.String())
		interval = nextInterval(interval, max)
	}
	want := "[2s 3s 4.5s 6.75s 10s 10s 10s]"
	if got := fmt.Sprintf("%v", sequence); got != want {
		t.Fatalf("unexpected interval sequence: %s", got)
	}
}

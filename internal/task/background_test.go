package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackgroundDeliversOutcome(t *testing.T) {
	job := Run(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})

	select {
	case outcome := <-job.Done():
		if outcome.Err != nil {
			t.Fatalf("unexpected error: %v", outcome.Err)
		}
		if outcome.Value != 42 {
			t.Fatalf("unexpected value: %d", outcome.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("the outcome was never delivered")
	}
}

func TestBackgroundUnconsumedOutcomeDoesNotLeak(t *testing.T) {
	finished := make(chan struct{})
	Run(context.Background(), func(context.Context) (int, error) {
		defer close(finished)
		return 1, nil
	})

	// Nobody receives the outcome; the goroutine must still terminate
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("the task goroutine did not finish")
	}
}

func TestBackgroundCancel(t *testing.T) {
	job := Run(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	job.Cancel()

	value, err := job.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got value=%d err=%v", value, err)
	}
}

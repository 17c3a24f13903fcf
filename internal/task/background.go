package task

import "context"

// Outcome carries the result of a finished background task
type Outcome[T any] struct {
	Value T
	Err   error
}

// Background runs a function asynchronously and delivers its result on a
// channel instead of performing ambient side effects. This gives launched-
// and-forgotten work (a polling loop whose dialog moved on) a defined result
// sink: if nobody ever receives the outcome, the goroutine still terminates
// because the channel is buffered.
type Background[T any] struct {
	done   chan Outcome[T]
	cancel context.CancelFunc
}

// Run launches fn on a new goroutine. The passed context is derived from ctx
// and canceled through Cancel.
func Run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Background[T] {
	ctx, cancel := context.WithCancel(ctx)
	job := &Background[T]{
		done:   make(chan Outcome[T], 1),
		cancel: cancel,
	}
	go func() {
		defer cancel()
		value, err := fn(ctx)
		job.done <- Outcome[T]{Value: value, Err: err}
	}()
	return job
}

// Done returns the channel the outcome is delivered on.
// The channel receives exactly one outcome.
func (job *Background[T]) Done() <-chan Outcome[T] {
	return job.done
}

// Wait blocks until the task finished or the given context is done
func (job *Background[T]) Wait(ctx context.Context) (T, error) {
	select {
	case outcome := <-job.done:
		return outcome.Value, outcome.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel cancels the context the task runs under.
// The task still delivers an outcome (usually a context error).
func (job *Background[T]) Cancel() {
	job.cancel()
}

package pipeline

import (
	"context"
	"sync"
)

// AsyncPipeline is a Pipeline whose runs may complete as deferred values.
// It adds lazy middleware registration and a RunAsync entry point that
// returns a Task instead of blocking.
type AsyncPipeline[I, O any] struct {
	*Pipeline[I, O]
}

// NewAsyncPipeline creates an empty async pipeline with optional
// configuration.
func NewAsyncPipeline[I, O any](opts ...Option) *AsyncPipeline[I, O] {
	return &AsyncPipeline[I, O]{
		Pipeline: NewPipeline[I, O](opts...),
	}
}

// Use appends middleware, returning the async pipeline for fluent
// chaining.
func (p *AsyncPipeline[I, O]) Use(ms ...Middleware[I, O]) *AsyncPipeline[I, O] {
	p.Pipeline.Use(ms...)
	return p
}

// UseLazy registers a middleware loader at the current chain position. The
// loader runs once, on the first run that reaches the position; every
// later run reuses the loaded middleware.
func (p *AsyncPipeline[I, O]) UseLazy(load func() Middleware[I, O]) *AsyncPipeline[I, O] {
	var once sync.Once
	var mw Middleware[I, O]

	p.Pipeline.Use(func(s *Scope, input I, next Next[I, O]) (O, error) {
		once.Do(func() {
			mw = load()
		})
		return mw(s, input, next)
	})
	return p
}

// RunAsync starts the chain on its own goroutine and returns a handle to
// the deferred result. The task resolves when the chain and all scheduled
// continuations resolve, or when ctx is cancelled first; in the latter
// case the chain keeps running detached but its result is discarded.
func (p *AsyncPipeline[I, O]) RunAsync(ctx context.Context, input I, opts ...RunOption[I, O]) *Task[O] {
	if ctx == nil {
		ctx = context.Background()
	}

	t := &Task[O]{done: make(chan struct{})}

	type runResult struct {
		value O
		err   error
	}

	resultCh := make(chan runResult, 1)
	go func() {
		value, err := p.Pipeline.Run(ctx, input, opts...)
		resultCh <- runResult{value: value, err: err}
	}()

	go func() {
		defer close(t.done)
		select {
		case res := <-resultCh:
			t.result = res.value
			t.err = res.err
		case <-ctx.Done():
			t.err = ctx.Err()
		}
	}()

	return t
}

// Task is the deferred result of one async run.
type Task[O any] struct {
	done   chan struct{}
	result O
	err    error
}

// Wait blocks until the task resolves and returns its result.
func (t *Task[O]) Wait() (O, error) {
	<-t.done
	return t.result, t.err
}

// Done returns a channel closed when the task resolves.
func (t *Task[O]) Done() <-chan struct{} {
	return t.done
}

// Resolved reports whether the task has resolved without blocking.
func (t *Task[O]) Resolved() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

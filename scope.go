package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope binds one container to the dynamic extent of one pipeline run,
// including every continuation scheduled through Go. Context operations
// anywhere inside that extent resolve against the bound container.
//
// A scope is established by Run (or by an inherited sub-pipeline
// invocation) and closed when the chain and all scheduled continuations
// have resolved. Operations against a nil or closed scope fail with a
// UsageError instead of falling back to any global store.
type Scope struct {
	id        string
	pipeline  string
	container *Container
	parent    *Scope
	ctx       context.Context
	closed    atomic.Bool
	pending   sync.WaitGroup
}

func newScope(ctx context.Context, pipeline string, container *Container, parent *Scope) *Scope {
	return &Scope{
		id:        uuid.NewString(),
		pipeline:  pipeline,
		container: container,
		parent:    parent,
		ctx:       ctx,
	}
}

// ID returns the run's identity, also used as the trace node ID.
func (s *Scope) ID() string {
	return s.id
}

// PipelineName returns the name of the pipeline that opened this scope.
func (s *Scope) PipelineName() string {
	return s.pipeline
}

// Parent returns the caller's scope for inherited sub-pipeline
// invocations, nil for top-level runs.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Context returns the stdlib context the run was started with, for
// deadline and cancellation plumbing into whatever the middleware calls.
func (s *Scope) Context() context.Context {
	if s == nil || s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Container returns the bound container. This is the escape hatch for
// handing ambient state to another thread of control deliberately; the
// container outlives the scope and its Read/Write never require one.
func (s *Scope) Container() *Container {
	if s == nil {
		return nil
	}
	return s.container
}

// Go schedules fn as a continuation of this run on its own goroutine. The
// scope stays ambient inside fn, and the run does not close (and Run does
// not return) until fn resolves. Scheduling on a closed scope panics: the
// run it belonged to has already produced its result.
func (s *Scope) Go(fn func()) {
	if s == nil || s.closed.Load() {
		panic(&UsageError{Op: "scope.go", Err: ErrScopeClosed})
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fn()
	}()
}

// ambient resolves the container for a context operation, enforcing the
// enter/exit discipline.
func (s *Scope) ambient() (*Container, error) {
	if s == nil {
		return nil, ErrNoAmbientScope
	}
	if s.closed.Load() {
		return nil, ErrScopeClosed
	}
	return s.container, nil
}

// close waits for scheduled continuations and seals the scope.
func (s *Scope) close() {
	s.pending.Wait()
	s.closed.Store(true)
}

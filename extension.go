package pipeline

import "context"

// OpKind identifies the operation an extension is wrapping.
type OpKind string

const (
	// OpRun is a top-level or isolated run.
	OpRun OpKind = "run"
	// OpInvoke is an inherited sub-pipeline invocation.
	OpInvoke OpKind = "invoke"
)

// Operation describes one run for extension hooks.
type Operation struct {
	Kind     OpKind
	Pipeline string
	RunID    string
	ParentID string
}

// Extension provides hooks into the run lifecycle
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a pipeline
	Init() error

	// Wrap intercepts the whole middleware chain of one run
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnRunStart is called after the scope is established, before the
	// first middleware. Returning an error aborts the run.
	OnRunStart(s *Scope, input any) error

	// OnRunEnd is called after the chain and all continuations resolve.
	// A returned error replaces a nil run error.
	OnRunEnd(s *Scope, result any, err error) error

	// OnPanic is called when a middleware panics, with the captured stack
	OnPanic(s *Scope, recovered any, stack []byte) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init() error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnRunStart(s *Scope, input any) error {
	return nil
}

func (e *BaseExtension) OnRunEnd(s *Scope, result any, err error) error {
	return nil
}

func (e *BaseExtension) OnPanic(s *Scope, recovered any, stack []byte) error {
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// Next resumes the remainder of the chain with the given input. A
// middleware that never calls it short-circuits everything registered
// after it.
type Next[I, O any] func(input I) (O, error)

// Middleware is one processing step. Code before the next call runs
// outside-in in registration order; code after it runs inside-out.
type Middleware[I, O any] func(s *Scope, input I, next Next[I, O]) (O, error)

// Middleware returns the function itself, so a plain middleware and a
// Pipeline expose the same composition capability.
func (m Middleware[I, O]) Middleware() Middleware[I, O] {
	return m
}

// Pipeline is an ordered, mutable chain of middleware with a single Run
// entry point. A pipeline may also be embedded into another pipeline of
// the same shape through its Middleware view.
type Pipeline[I, O any] struct {
	name       string
	mu         sync.RWMutex
	chain      []Middleware[I, O]
	contexts   []AnyContext
	extensions []Extension
	tree       *RunTree
}

// Option is a modifier for pipelines
type Option func(*config)

type config struct {
	name       string
	contexts   []AnyContext
	extensions []Extension
	treeLimit  int
}

// WithName sets the pipeline name used in errors and trace nodes.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithContexts pre-binds context defaults: each fresh container created by
// Run is seeded with these handles' default values. Pass derived handles
// to override a context's default for this pipeline only.
func WithContexts(contexts ...AnyContext) Option {
	return func(cfg *config) {
		cfg.contexts = append(cfg.contexts, contexts...)
	}
}

// WithExtension returns an option that registers an extension
func WithExtension(ext Extension) Option {
	return func(cfg *config) {
		cfg.extensions = append(cfg.extensions, ext)
	}
}

// WithTreeLimit bounds the run trace store (default 1000 nodes).
func WithTreeLimit(limit int) Option {
	return func(cfg *config) {
		cfg.treeLimit = limit
	}
}

// NewPipeline creates an empty pipeline with optional configuration.
func NewPipeline[I, O any](opts ...Option) *Pipeline[I, O] {
	cfg := &config{
		name:      "pipeline",
		treeLimit: 1000,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pipeline[I, O]{
		name:     cfg.name,
		contexts: cfg.contexts,
		tree:     newRunTree(cfg.treeLimit),
	}

	for _, ext := range cfg.extensions {
		if err := p.UseExtension(ext); err != nil {
			panic(err)
		}
	}

	return p
}

// Name returns the pipeline's name.
func (p *Pipeline[I, O]) Name() string {
	return p.name
}

// Tree returns the pipeline's run trace store.
func (p *Pipeline[I, O]) Tree() *RunTree {
	return p.tree
}

// Use appends middleware to the chain in registration order and returns
// the pipeline for fluent chaining. Embed another pipeline by appending
// its Middleware view.
func (p *Pipeline[I, O]) Use(ms ...Middleware[I, O]) *Pipeline[I, O] {
	p.mu.Lock()
	p.chain = append(p.chain, ms...)
	p.mu.Unlock()
	return p
}

// UseExtension registers an extension, keeping extensions sorted by Order.
func (p *Pipeline[I, O]) UseExtension(ext Extension) error {
	p.mu.Lock()
	p.extensions = append(p.extensions, ext)
	sort.SliceStable(p.extensions, func(i, j int) bool {
		return p.extensions[i].Order() < p.extensions[j].Order()
	})
	p.mu.Unlock()

	return ext.Init()
}

// RunOption is a modifier for a single run
type RunOption[I, O any] func(*runConfig[I, O])

type runConfig[I, O any] struct {
	container *Container
	onLast    func(*Scope, I) (O, error)
}

// WithContainer supplies the container for this run instead of creating a
// fresh one. Passing one container to two concurrent runs shares state
// deliberately; the caller owns any resulting race.
func WithContainer[I, O any](c *Container) RunOption[I, O] {
	return func(rc *runConfig[I, O]) {
		rc.container = c
	}
}

// WithOnLast supplies the fallback handler invoked when the last
// middleware calls next with nothing left in the chain. Without it, an
// exhausted chain fails with ErrNoResult.
func WithOnLast[I, O any](handler func(*Scope, I) (O, error)) RunOption[I, O] {
	return func(rc *runConfig[I, O]) {
		rc.onLast = handler
	}
}

// Run drives the chain to completion: it resolves a container (fresh and
// seeded with the pipeline's pre-bound contexts unless one is supplied),
// opens an execution scope bound to it, invokes the first middleware, and
// closes the scope once the chain and every scheduled continuation have
// resolved.
func (p *Pipeline[I, O]) Run(ctx context.Context, input I, opts ...RunOption[I, O]) (O, error) {
	rc := &runConfig[I, O]{}
	for _, opt := range opts {
		opt(rc)
	}

	container := rc.container
	if container == nil {
		container = NewContainer()
		container.seedDefaults(p.contexts)
	}

	return p.execute(ctx, nil, container, input, rc.onLast, OpRun)
}

// Invoke returns a function that runs p's chain inside the caller's
// ambient container: values set by earlier middleware in the calling chain
// are visible to p's middleware, and p's writes remain visible to the
// caller afterwards. For an isolated invocation use p.Run instead.
func Invoke[I, O any](s *Scope, p *Pipeline[I, O]) func(I) (O, error) {
	return func(input I) (O, error) {
		container, err := s.ambient()
		if err != nil {
			var zero O
			return zero, &UsageError{Op: "invoke", Pipeline: p.name, Err: err}
		}
		return p.execute(s.Context(), s, container, input, nil, OpInvoke)
	}
}

// Middleware returns the pipeline as a single middleware for direct
// composition into an outer pipeline. The embedded chain runs in the outer
// scope and container; if it exhausts, control continues with the outer
// chain's next middleware.
func (p *Pipeline[I, O]) Middleware() Middleware[I, O] {
	return func(s *Scope, input I, next Next[I, O]) (O, error) {
		return p.dispatch(s, 0, input, func(_ *Scope, in I) (O, error) {
			return next(in)
		})
	}
}

func (p *Pipeline[I, O]) execute(ctx context.Context, parent *Scope, container *Container, input I, onLast func(*Scope, I) (O, error), kind OpKind) (O, error) {
	var zero O

	if ctx == nil {
		ctx = context.Background()
	}

	scope := newScope(ctx, p.name, container, parent)

	node := &RunNode{
		ID:       scope.id,
		Pipeline: p.name,
		Status:   RunStatusRunning,
		Start:    time.Now(),
		Input:    input,
	}
	if parent != nil {
		node.ParentID = parent.id
	}

	// Check for cancellation before entering the chain
	select {
	case <-ctx.Done():
		node.End = time.Now()
		node.Status = RunStatusCancelled
		node.Err = ctx.Err()
		p.tree.addNode(node)
		return zero, ctx.Err()
	default:
	}

	p.mu.RLock()
	exts := make([]Extension, len(p.extensions))
	copy(exts, p.extensions)
	p.mu.RUnlock()

	for _, ext := range exts {
		if err := ext.OnRunStart(scope, input); err != nil {
			scope.close()
			node.End = time.Now()
			node.Status = RunStatusFailed
			node.Err = err
			p.tree.addNode(node)
			return zero, err
		}
	}

	op := &Operation{
		Kind:     kind,
		Pipeline: p.name,
		RunID:    scope.id,
		ParentID: node.ParentID,
	}

	chain := func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				err = fmt.Errorf("panic in middleware: %v", r)
				node.PanicStack = stack

				for _, ext := range exts {
					if panicErr := ext.OnPanic(scope, r, stack); panicErr != nil {
						err = errors.Join(err, panicErr)
					}
				}
			}
		}()

		out, err := p.dispatch(scope, 0, input, onLast)
		return out, err
	}

	// Apply extensions in reverse order (last registered wraps first)
	next := chain
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	resultAny, err := next()

	scope.close()

	result, assertErr := SafeTypeAssertion[O](resultAny)
	if assertErr != nil && err == nil {
		err = assertErr
	}

	node.End = time.Now()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			node.Status = RunStatusCancelled
		} else {
			node.Status = RunStatusFailed
		}
		node.Err = err
	} else {
		node.Status = RunStatusSuccess
		node.Output = result
	}

	p.tree.addNode(node)

	for i := len(exts) - 1; i >= 0; i-- {
		if extErr := exts[i].OnRunEnd(scope, result, err); extErr != nil && err == nil {
			err = extErr
		}
	}

	return result, err
}

// dispatch drives the chain from the given position. Each middleware
// receives a continuation bound to the rest of the chain; recursion depth
// equals chain length.
func (p *Pipeline[I, O]) dispatch(s *Scope, index int, input I, onLast func(*Scope, I) (O, error)) (O, error) {
	p.mu.RLock()
	chain := p.chain
	p.mu.RUnlock()

	if index >= len(chain) {
		if onLast != nil {
			return onLast(s, input)
		}
		var zero O
		return zero, &UsageError{Op: "run", Pipeline: p.name, Err: ErrNoResult}
	}

	next := func(in I) (O, error) {
		return p.dispatch(s, index+1, in, onLast)
	}

	return chain[index](s, input, next)
}

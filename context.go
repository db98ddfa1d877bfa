package pipeline

import (
	"reflect"

	"github.com/google/uuid"
)

// AnyContext is the type-erased view of a Context, used wherever contexts
// of mixed value types travel together (container seeding, pipeline
// defaults).
type AnyContext interface {
	// ContextID returns the identity token shared by all handles derived
	// from the same CreateContext call.
	ContextID() uuid.UUID

	// ContextName returns the diagnostic name, if one was given.
	ContextName() string

	// DefaultAny returns the handle's default value.
	DefaultAny() any
}

// Context is a typed, globally-identified slot with a default value. It
// holds no storage of its own: reads and writes resolve against the
// container bound to the active execution scope.
type Context[T any] struct {
	id   uuid.UUID
	name string
	def  T
}

// ContextOption is a modifier for contexts
type ContextOption func(*contextConfig)

type contextConfig struct {
	name string
}

// WithContextName sets a diagnostic name used in error messages.
func WithContextName(name string) ContextOption {
	return func(cfg *contextConfig) {
		cfg.name = name
	}
}

// CreateContext creates a context with a fresh identity and the given
// default value. The identity is immutable for the life of the process.
func CreateContext[T any](defaultValue T, opts ...ContextOption) *Context[T] {
	cfg := &contextConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Context[T]{
		id:   uuid.New(),
		name: cfg.name,
		def:  defaultValue,
	}
}

// Derive returns a handle sharing this context's identity but carrying a
// different default value. Deriving is how a pipeline or container is
// pre-seeded with an alternate default without creating a distinct slot.
func (c *Context[T]) Derive(defaultValue T) *Context[T] {
	return &Context[T]{
		id:   c.id,
		name: c.name,
		def:  defaultValue,
	}
}

func (c *Context[T]) ContextID() uuid.UUID {
	return c.id
}

func (c *Context[T]) ContextName() string {
	return c.name
}

func (c *Context[T]) DefaultAny() any {
	return c.def
}

// Default returns the handle's typed default value.
func (c *Context[T]) Default() T {
	return c.def
}

// Get reads the slot from the container bound to s, falling back to the
// context's default when no write has happened. It fails when s is nil or
// its run has already resolved.
func (c *Context[T]) Get(s *Scope) (T, error) {
	container, err := s.ambient()
	if err != nil {
		var zero T
		return zero, &UsageError{Op: "context.get", Context: c.name, Err: err}
	}
	return Read(container, c), nil
}

// MustGet is Get but panics on a usage error.
func (c *Context[T]) MustGet(s *Scope) T {
	val, err := c.Get(s)
	if err != nil {
		panic(err)
	}
	return val
}

// Set writes the slot in the container bound to s. The write is visible to
// every later read within the same scope and to inherited sub-pipeline
// invocations, and to nothing else.
func (c *Context[T]) Set(s *Scope, value T) error {
	container, err := s.ambient()
	if err != nil {
		return &UsageError{Op: "context.set", Context: c.name, Err: err}
	}
	Write(container, c, value)
	return nil
}

// Assert is Get with the additional requirement that the resolved value is
// present: a nil pointer, interface, map, slice, func or chan fails with
// ErrValueAbsent. Use it at call sites that need a non-optional value.
func (c *Context[T]) Assert(s *Scope) (T, error) {
	val, err := c.Get(s)
	if err != nil {
		return val, err
	}
	if isAbsent(val) {
		var zero T
		return zero, &UsageError{Op: "context.assert", Context: c.name, Err: ErrValueAbsent}
	}
	return val, nil
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

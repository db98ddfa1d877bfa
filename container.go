package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// Container is the concrete store backing all context reads and writes for
// one logical invocation. Slots are keyed by context identity; reads of an
// unwritten slot fall back to the reading handle's default. Containers never
// merge: each run owns exactly one unless the caller deliberately shares.
type Container struct {
	mu     sync.RWMutex
	values map[uuid.UUID]any
}

// ContextValue is an initial binding for container construction, produced
// by BindValue.
type ContextValue struct {
	id    uuid.UUID
	value any
}

// BindValue binds a value to a context's slot for seeding a new container,
// e.g. for dependency injection or test fixtures.
func BindValue[T any](ctx *Context[T], value T) ContextValue {
	return ContextValue{id: ctx.ContextID(), value: value}
}

// NewContainer creates a container, optionally pre-seeded with bindings.
func NewContainer(seeds ...ContextValue) *Container {
	c := &Container{
		values: make(map[uuid.UUID]any, len(seeds)),
	}
	for _, seed := range seeds {
		c.values[seed.id] = seed.value
	}
	return c
}

// seedDefaults writes each handle's default into its slot. Used by Run to
// apply a pipeline's pre-bound derived contexts to a fresh container.
func (c *Container) seedDefaults(contexts []AnyContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ctx := range contexts {
		c.values[ctx.ContextID()] = ctx.DefaultAny()
	}
}

// ReadAny returns the stored value for ctx's slot, or ctx's default when
// the slot has never been written. It never fails.
func (c *Container) ReadAny(ctx AnyContext) any {
	c.mu.RLock()
	val, ok := c.values[ctx.ContextID()]
	c.mu.RUnlock()
	if !ok {
		return ctx.DefaultAny()
	}
	return val
}

// WriteAny inserts or overwrites ctx's slot in this container only. Other
// containers sharing the context see nothing.
func (c *Container) WriteAny(ctx AnyContext, value any) {
	c.mu.Lock()
	c.values[ctx.ContextID()] = value
	c.mu.Unlock()
}

// Has reports whether ctx's slot has been written or seeded.
func (c *Container) Has(ctx AnyContext) bool {
	c.mu.RLock()
	_, ok := c.values[ctx.ContextID()]
	c.mu.RUnlock()
	return ok
}

// Read retrieves the typed value of ctx's slot from c, falling back to the
// handle's default.
func Read[T any](c *Container, ctx *Context[T]) T {
	val := c.ReadAny(ctx)
	typed, err := SafeTypeAssertion[T](val)
	if err != nil {
		// Foreign type in the slot: WriteAny was called with a mismatched
		// handle. Resolve to the default.
		return ctx.Default()
	}
	return typed
}

// Write stores the typed value into ctx's slot in c.
func Write[T any](c *Container, ctx *Context[T], value T) {
	c.WriteAny(ctx, value)
}

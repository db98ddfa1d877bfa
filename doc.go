// Package pipeline provides an ordered, short-circuiting middleware engine
// with typed ambient state for Go.
//
// # Overview
//
// The package organizes code around four core concepts:
//
//  1. Contexts: typed, globally-identified slots with default values
//  2. Containers: per-invocation stores backing all context reads/writes
//  3. Scopes: the binding of one container to the dynamic extent of one run
//  4. Pipelines: ordered middleware chains with a single Run entry point
//
// # Basic Usage
//
// Create contexts at package initialization and read them from any
// middleware without threading them as parameters:
//
//	var UserContext = pipeline.CreateContext[*User](nil,
//	    pipeline.WithContextName("user"))
//
//	p := pipeline.NewPipeline[*Request, *Response](
//	    pipeline.WithName("api"),
//	)
//
//	p.Use(func(s *pipeline.Scope, req *Request, next pipeline.Next[*Request, *Response]) (*Response, error) {
//	    UserContext.Set(s, authenticate(req))
//	    return next(req)
//	})
//
//	p.Use(func(s *pipeline.Scope, req *Request, next pipeline.Next[*Request, *Response]) (*Response, error) {
//	    user, err := UserContext.Assert(s)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return respond(user), nil
//	})
//
//	resp, err := p.Run(ctx, req)
//
// Each Run creates a fresh container, so concurrent runs of the same
// pipeline never observe each other's writes. Middleware execute in strict
// registration order; one that returns without calling next short-circuits
// everything after it, and code after a next call runs inside-out in
// reverse registration order.
//
// # Containers
//
// A container can be built and supplied explicitly, e.g. to inject
// fixtures in tests:
//
//	c := pipeline.NewContainer(
//	    pipeline.BindValue(UserContext, &User{Name: "test"}),
//	)
//	resp, err := p.Run(ctx, req, pipeline.WithContainer[*Request, *Response](c))
//
// Reads always resolve: a slot that was never written falls back to the
// reading handle's default. Deriving a context produces a handle with the
// same identity but an alternate default, used to pre-seed a pipeline:
//
//	p := pipeline.NewPipeline[In, Out](
//	    pipeline.WithContexts(CountContext.Derive(10)),
//	)
//
// # Scopes and Continuations
//
// The scope handle is the ambient carrier: every closure that captures it
// keeps the run's container reachable, however late it executes. A
// middleware that needs work to outlive its own stack frame schedules it
// through the scope:
//
//	s.Go(func() {
//	    TraceContext.Set(s, span.End())
//	})
//
// Run does not return until all continuations scheduled this way have
// resolved. Context operations with no established scope (a nil scope, or
// one whose run already resolved) fail loudly with a UsageError wrapping
// ErrNoAmbientScope or ErrScopeClosed; there is no global fallback store.
//
// # Composition
//
// A pipeline embeds into another pipeline of the same shape as a single
// middleware, sharing the outer run's container transparently:
//
//	outer.Use(inner.Middleware())
//
// A middleware can instead invoke an independently-typed pipeline. The
// inherited form reuses the caller's container, so ambient state flows
// through both chains:
//
//	run := pipeline.Invoke(s, authPipeline)
//	out, err := run(credentials)
//
// The isolated form is a plain nested Run, which gets its own fresh
// container:
//
//	out, err := authPipeline.Run(s.Context(), credentials)
//
// # Async Pipelines
//
// AsyncPipeline adds deferred results and lazy middleware registration:
//
//	ap := pipeline.NewAsyncPipeline[Job, Report]()
//	ap.UseLazy(func() pipeline.Middleware[Job, Report] {
//	    return buildExpensiveMiddleware()
//	})
//
//	task := ap.RunAsync(ctx, job)
//	report, err := task.Wait()
//
// # Extensions
//
// Extensions hook the run lifecycle for cross-cutting concerns:
//
//	type TimingExtension struct {
//	    pipeline.BaseExtension
//	}
//
//	func (e *TimingExtension) Wrap(ctx context.Context, next func() (any, error), op *pipeline.Operation) (any, error) {
//	    start := time.Now()
//	    result, err := next()
//	    log.Printf("%s %s took %v", op.Kind, op.Pipeline, time.Since(start))
//	    return result, err
//	}
//
//	p := pipeline.NewPipeline[In, Out](
//	    pipeline.WithExtension(&TimingExtension{
//	        BaseExtension: pipeline.NewBaseExtension("timing"),
//	    }),
//	)
//
// # Run Tree
//
// Every run records a node in the pipeline's bounded RunTree; inherited
// sub-pipeline invocations parent their nodes under the caller's run:
//
//	tree := p.Tree()
//	for _, root := range tree.GetRoots() {
//	    tree.Walk(root.ID, func(n *pipeline.RunNode) bool {
//	        fmt.Printf("%s %s %v\n", n.Pipeline, n.Status, n.End.Sub(n.Start))
//	        return true
//	    })
//	}
//
// # Error Handling
//
// The core swallows nothing. A middleware error returns through the chain
// like any Go error; middleware that ran code before next still get to run
// code after it and may replace or wrap the error. A panic unwinds to the
// run boundary, where it surfaces as an error carrying the captured stack.
// An exhausted chain with no fallback handler fails with ErrNoResult.
//
// # Thread Safety
//
// Containers are safe for concurrent use. Isolation between runs is
// structural: each Run owns a fresh container unless the caller explicitly
// shares one, in which case the caller owns the consequences.
package pipeline

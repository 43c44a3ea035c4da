package trace

import "context"

type ctxKey struct{}

// FromContext extracts the Tracer from context, Nop if absent.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

type spanCtxKey struct{}

// CurrentSpan returns the active span ID carried by ctx, 0 if none.
func CurrentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(spanCtxKey{}).(uint64); ok {
		return id
	}
	return 0
}

// StartSpan begins a child of the span carried by ctx using the context's
// tracer and returns a context carrying the new span.
func StartSpan(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	span := Begin(FromContext(ctx), scope, name, CurrentSpan(ctx))
	if span.ID() == 0 {
		return ctx, span
	}
	return context.WithValue(ctx, spanCtxKey{}, span.ID()), span
}

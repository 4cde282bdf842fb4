package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type ctxKey struct{}

type eventKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// With returns a context whose logger carries the extra fields. The fields
// are also added to the request's canonical line when one is being built.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	Annotate(ctx, fields...)
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}

// Event collects fields for a request's canonical log line.
type Event struct {
	mu     sync.Mutex
	fields []zap.Field
}

// ContextWithEvent starts collecting canonical line fields for ctx.
func ContextWithEvent(ctx context.Context) (context.Context, *Event) {
	e := &Event{}
	return context.WithValue(ctx, eventKey{}, e), e
}

// Add appends fields to the event.
func (e *Event) Add(fields ...zap.Field) {
	e.mu.Lock()
	e.fields = append(e.fields, fields...)
	e.mu.Unlock()
}

// Fields returns a copy of the collected fields.
func (e *Event) Fields() []zap.Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]zap.Field(nil), e.fields...)
}

// Annotate adds fields to the canonical line of the request in ctx.
// Without an event in ctx it does nothing.
func Annotate(ctx context.Context, fields ...zap.Field) {
	if e, ok := ctx.Value(eventKey{}).(*Event); ok {
		e.Add(fields...)
	}
}

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	cycleIDKey   contextKey = "cycle_id"
)

func NewID() string {
	return uuid.NewString()
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithCycleID tags every log line emitted during one scheduled cycle.
func ContextWithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

func CycleIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(cycleIDKey).(string)
	return id
}

// Ctx returns the global logger enriched with the request and cycle IDs found in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger().With().Logger()
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	if id := CycleIDFromContext(ctx); id != "" {
		l = l.With().Str("cycle_id", id).Logger()
	}
	return &l
}

package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> core).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	// ContextKeyCorrelationId ties together every log line and ActivityLog
	// row emitted by a single cycle invocation.
	ContextKeyCorrelationId = ContextKey("CorrelationId")

	// ContextKeyCycleID identifies the RunCycle invocation currently in
	// flight on this context, for log correlation across schedule handling.
	ContextKeyCycleID = ContextKey("CycleID")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

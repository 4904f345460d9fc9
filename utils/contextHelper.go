package utils

import (
	"context"

	"github.com/xfleet/publisher/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyCycleID       = appctx.ContextKeyCycleID
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetCycleIDFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCycleID)
}

func SetCycleIDInContext(ctx context.Context, cycleID string) context.Context {
	return appctx.Set(ctx, ContextKeyCycleID, cycleID)
}

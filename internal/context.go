package internal

import "context"

type ctxKey string

const ContextActorKey ctxKey = "actorID"

// ActorIDFromContext returns the authenticated chat actor (admin or customer) id, or empty.
func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if actorID, ok := ctx.Value(ContextActorKey).(string); ok {
		return actorID
	}
	return ""
}

func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextActorKey, actorID)
}

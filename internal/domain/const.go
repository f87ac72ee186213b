package domain

import "context"

type ctxKey string

const (
	// ActorIdCtxKey carries the authenticated operator id through a request.
	ActorIdCtxKey ctxKey = "st-actorId"
)

const (
	ActorIdHeader = "st-actor-id"
)

// ActorFallback stamps mutations made without an authenticated operator.
const ActorFallback = "system"

// ActorFromContext resolves the acting operator id, falling back to the
// system actor when the request carried no identity.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorIdCtxKey).(string); ok && v != "" {
		return v
	}
	return ActorFallback
}

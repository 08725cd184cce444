// Package context carries request-scoped observability fields.
package context

import (
	stdcontext "context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorRoleKey ctxKey = "actor_role"
	actorIDKey   ctxKey = "actor_id"
)

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records who is acting on the request.
func WithActor(ctx stdcontext.Context, role, agentID string) stdcontext.Context {
	ctx = stdcontext.WithValue(ctx, actorRoleKey, strings.TrimSpace(role))
	return stdcontext.WithValue(ctx, actorIDKey, strings.TrimSpace(agentID))
}

// ActorFromContext returns the actor role and agent id, empty when unauthenticated.
func ActorFromContext(ctx stdcontext.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	role, _ := ctx.Value(actorRoleKey).(string)
	id, _ := ctx.Value(actorIDKey).(string)
	return role, id
}

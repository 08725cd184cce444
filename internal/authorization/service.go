package authorization

import (
	"context"
	"errors"
)

// Service checks whether an agent may perform an action on an object.
type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}

// Actor is the authenticated caller as resolved from the agent directory.
type Actor struct {
	AgentID string
	Role    string
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

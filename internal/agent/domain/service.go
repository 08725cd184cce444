package domain

import (
	"context"
	"errors"
)

type CreateAgentRequest struct {
	Name  string
	Email string
	Role  string
}

type Service interface {
	Create(context.Context, CreateAgentRequest) (Agent, error)
	List(context.Context) ([]Agent, error)
	GetByID(context.Context, string) (Agent, error)
	DismissCycle(ctx context.Context, agentID string, cycleID string) (Agent, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidScope = errors.New("invalid_scope")
	ErrNotFound     = errors.New("not_found")
)

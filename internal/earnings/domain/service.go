package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/salesdesk/internal/earnings/aggregate"
)

// TeamTotal is the team's running total for the cycle in progress.
type TeamTotal struct {
	CycleID    string `json:"cycle_id,omitempty"`
	TotalCents int64  `json:"total_cents"`
}

// Service recomputes every view from the full data set on each call.
type Service interface {
	Earnings(ctx context.Context, scope string) (aggregate.Earnings, error)
	TeamCycleTotal(ctx context.Context) (TeamTotal, error)
	Performance(ctx context.Context, agentID string) (aggregate.Performance, error)
	Dashboard(ctx context.Context, scope string) (aggregate.Dashboard, error)
}

var (
	ErrInvalidScope = errors.New("invalid_scope")
	ErrNotFound     = errors.New("not_found")
)

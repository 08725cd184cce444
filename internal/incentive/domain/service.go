package domain

import (
	"context"
	"errors"
	"time"
)

type CreateRuleRequest struct {
	Target      string
	Kind        string
	ValueCents  int64
	Label       string
	StartTime   *time.Time
	EndTime     *time.Time
	TargetCount *int64
}

// GrantRequest books a one-off bonus outside of any rule.
type GrantRequest struct {
	UserID      string
	AmountCents int64
	Label       string
	// CycleID pins the bonus to a cycle; empty uses the active cycle, if any.
	CycleID string
}

type Service interface {
	CreateRule(context.Context, CreateRuleRequest) (IncentiveRule, error)
	ListRules(context.Context) ([]IncentiveRule, error)
	SetRuleActive(ctx context.Context, id string, active bool) (IncentiveRule, error)
	DeleteRule(context.Context, string) error

	Grant(context.Context, GrantRequest) (Incentive, error)
	List(context.Context) ([]Incentive, error)
	Delete(context.Context, string) error
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTarget      = errors.New("invalid_target")
	ErrInvalidKind        = errors.New("invalid_rule_kind")
	ErrInvalidValue       = errors.New("invalid_value")
	ErrInvalidLabel       = errors.New("invalid_label")
	ErrInvalidWindow      = errors.New("invalid_window")
	ErrInvalidTargetCount = errors.New("invalid_target_count")
	ErrRuleNotFound       = errors.New("rule_not_found")
	ErrNotFound           = errors.New("not_found")
)

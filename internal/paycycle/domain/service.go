package domain

import (
	"context"
	"errors"
	"time"
)

type CreatePayCycleRequest struct {
	StartDate time.Time
	EndDate   time.Time
}

type UpdatePayCycleRequest struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
}

// PayCycleView decorates a cycle with its status at read time.
type PayCycleView struct {
	PayCycle
	Status              Status `json:"status"`
	ProgressBasisPoints int64  `json:"progress_bps"`
}

type Service interface {
	Create(context.Context, CreatePayCycleRequest) (PayCycle, error)
	Update(context.Context, UpdatePayCycleRequest) (PayCycle, error)
	Delete(context.Context, string) error
	List(context.Context) ([]PayCycleView, error)
	Active(context.Context) (*PayCycle, error)
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidPeriod = errors.New("invalid_cycle_period")
	ErrNotFound      = errors.New("not_found")
)

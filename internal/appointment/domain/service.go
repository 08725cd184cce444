package domain

import (
	"context"
	"errors"
	"time"
)

type CreateAppointmentRequest struct {
	OwnerAgentID string
	Name         string
	Phone        string
	Email        string
	Notes        string
	ScheduledAt  time.Time
	CloserName   string
	// LiveTransfer creates the record on the live-transfer path instead of as a PENDING appointment.
	LiveTransfer bool
	// SelfClose onboards a live transfer immediately with the owner as closer.
	SelfClose bool
	// EarnedAmountCents carries an explicit amount for historical deals.
	EarnedAmountCents *int64
}

type MoveStageRequest struct {
	ID                string
	Stage             Stage
	ManualSelfOnboard bool
	CloserName        string
	ScheduledAt       *time.Time
	EarnedAmountCents *int64
}

type ListAppointmentRequest struct {
	OwnerAgentID string
	Stage        string
}

type Service interface {
	Create(context.Context, CreateAppointmentRequest) (Appointment, error)
	MoveStage(context.Context, MoveStageRequest) (Appointment, error)
	Delete(context.Context, string) error
	GetByID(context.Context, string) (Appointment, error)
	List(context.Context, ListAppointmentRequest) ([]Appointment, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidStage       = errors.New("invalid_stage")
	ErrInvalidScheduledAt = errors.New("invalid_scheduled_at")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrNotFound           = errors.New("not_found")
)

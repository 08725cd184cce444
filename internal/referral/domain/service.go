package domain

import (
	"context"
	"errors"

	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/referral/ledger"
)

type UpdateReferralRequest struct {
	AppointmentID string
	// Count is the new running total, not a delta.
	Count int64
}

type UpdateReferralResponse struct {
	Appointment appointmentdomain.Appointment `json:"appointment"`
	Incentive   *incentivedomain.Incentive    `json:"incentive,omitempty"`
}

type DeleteEntryRequest struct {
	AppointmentID string
	EntryID       string
}

type DeleteEntryResponse struct {
	Appointment        appointmentdomain.Appointment `json:"appointment"`
	RemovedIncentiveID string                        `json:"removed_incentive_id,omitempty"`
}

type ImportRequest struct {
	Rows []ledger.ReportRow
}

type ImportResponse struct {
	BatchID    string `json:"batch_id"`
	Rows       int    `json:"rows"`
	Applied    int    `json:"applied"`
	Skipped    int    `json:"skipped"`
	Unmatched  int    `json:"unmatched"`
	Updated    int    `json:"updated_appointments"`
	BonusCents int64  `json:"bonus_cents"`
}

type Service interface {
	Update(context.Context, UpdateReferralRequest) (UpdateReferralResponse, error)
	DeleteEntry(context.Context, DeleteEntryRequest) (DeleteEntryResponse, error)
	Import(context.Context, ImportRequest) (ImportResponse, error)
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotOnboarded   = errors.New("appointment_not_onboarded")
	ErrEmptyReport    = errors.New("empty_report")
	ErrReportTooLarge = errors.New("report_too_large")
	ErrNotFound       = errors.New("not_found")
)

// Package domain holds the appointment record and its pipeline stages.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Stage is the position of an appointment in the sales pipeline.
type Stage string

const (
	StagePending     Stage = "PENDING"
	StageRescheduled Stage = "RESCHEDULED"
	StageNoShow      Stage = "NO_SHOW"
	StageTransferred Stage = "TRANSFERRED"
	StageOnboarded   Stage = "ONBOARDED"
	StageDeclined    Stage = "DECLINED"
)

// Valid reports whether the stage is one of the known pipeline stages.
func (s Stage) Valid() bool {
	switch s {
	case StagePending, StageRescheduled, StageNoShow, StageTransferred, StageOnboarded, StageDeclined:
		return true
	default:
		return false
	}
}

// Type records how the lead entered the pipeline.
type Type string

const (
	TypeAppointment Type = "appointment"
	TypeTransfer    Type = "transfer"
)

// ReferralHistoryEntry is one append-only audit line of the referral count.
// IncentiveID is nil for negative corrections, which pay nothing.
type ReferralHistoryEntry struct {
	ID          snowflake.ID  `json:"id"`
	Date        time.Time     `json:"date"`
	CountDelta  int64         `json:"count"`
	IncentiveID *snowflake.ID `json:"incentive_id,omitempty"`
}

// Appointment is a client/lead owned by one agent.
type Appointment struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerAgentID      snowflake.ID `gorm:"not null;index" json:"owner_agent_id"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	Phone             string       `gorm:"type:text" json:"phone"`
	Email             string       `gorm:"type:text" json:"email"`
	Notes             string       `gorm:"type:text" json:"notes,omitempty"`
	Type              Type         `gorm:"type:text;not null;default:'appointment'" json:"type"`
	CloserName        string       `gorm:"type:text" json:"closer_name,omitempty"`
	Stage             Stage        `gorm:"type:text;not null;index" json:"stage"`
	ScheduledAt       time.Time    `gorm:"not null;index" json:"scheduled_at"`
	EarnedAmountCents int64        `gorm:"not null;default:0" json:"earned_amount_cents"`
	ManualAmount      bool         `gorm:"not null;default:false" json:"manual_amount"`
	// RuleBonusCents is the rule bonus part of EarnedAmountCents from the latest onboarding.
	RuleBonusCents  int64                                     `gorm:"not null;default:0" json:"rule_bonus_cents"`
	ReferralCount   int64                                     `gorm:"not null;default:0" json:"referral_count"`
	ReferralHistory datatypes.JSONSlice[ReferralHistoryEntry] `json:"referral_history"`
	LastReferralAt  *time.Time                                `json:"last_referral_at,omitempty"`
	OnboardedAt     *time.Time                                `json:"onboarded_at,omitempty"`
	NurtureDate     *time.Time                                `json:"nurture_date,omitempty"`
	CreatedAt       time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time                                 `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Appointment) TableName() string { return "appointments" }

func (a Appointment) IsOnboarded() bool {
	return a.Stage == StageOnboarded
}

// HistoryTotal sums the count deltas of the referral history.
func (a Appointment) HistoryTotal() int64 {
	var total int64
	for _, entry := range a.ReferralHistory {
		total += entry.CountDelta
	}
	return total
}

// Clone returns a copy that shares no mutable state with the receiver.
func (a Appointment) Clone() Appointment {
	out := a
	if a.ReferralHistory != nil {
		out.ReferralHistory = make(datatypes.JSONSlice[ReferralHistoryEntry], len(a.ReferralHistory))
		copy(out.ReferralHistory, a.ReferralHistory)
	}
	out.LastReferralAt = cloneTime(a.LastReferralAt)
	out.OnboardedAt = cloneTime(a.OnboardedAt)
	out.NurtureDate = cloneTime(a.NurtureDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

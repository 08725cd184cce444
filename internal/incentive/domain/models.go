package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
)

// RuleKind selects the kind-specific behaviour of an IncentiveRule.
type RuleKind string

const (
	// RuleKindOneTime is an immediate cash payout per qualifying deal.
	RuleKindOneTime RuleKind = "ONE_TIME"
	// RuleKindPerDeal pays on every qualifying deal, optionally up to a cap.
	RuleKindPerDeal RuleKind = "PER_DEAL"
	// RuleKindUpForGrabs pays the first TargetCount qualifying deals across the scope.
	RuleKindUpForGrabs RuleKind = "UP_FOR_GRABS"
)

func (k RuleKind) Valid() bool {
	switch k {
	case RuleKindOneTime, RuleKindPerDeal, RuleKindUpForGrabs:
		return true
	default:
		return false
	}
}

// IncentiveRule is a standing bonus policy evaluated on every onboarding.
type IncentiveRule struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Target       agentdomain.Scope `gorm:"type:text;not null;index" json:"target"`
	Kind         RuleKind          `gorm:"type:text;not null" json:"kind"`
	ValueCents   int64             `gorm:"not null" json:"value_cents"`
	Label        string            `gorm:"type:text;not null" json:"label"`
	StartTime    *time.Time        `json:"start_time,omitempty"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	TargetCount  *int64            `json:"target_count,omitempty"`
	CurrentCount int64             `gorm:"not null;default:0" json:"current_count"`
	IsActive     bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (IncentiveRule) TableName() string { return "incentive_rules" }

// Exhausted reports whether a capped rule has no capacity left.
func (r IncentiveRule) Exhausted() bool {
	return r.TargetCount != nil && r.CurrentCount >= *r.TargetCount
}

// InWindow reports whether now lies within the optional activation window.
func (r IncentiveRule) InWindow(now time.Time) bool {
	if r.StartTime != nil && now.Before(*r.StartTime) {
		return false
	}
	if r.EndTime != nil && now.After(*r.EndTime) {
		return false
	}
	return true
}

// Incentive is an immutable bonus payout. It is inserted or deleted, never updated.
type Incentive struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID               agentdomain.Scope `gorm:"type:text;not null;index" json:"user_id"`
	AmountCents          int64             `gorm:"not null" json:"amount_cents"`
	Label                string            `gorm:"type:text;not null" json:"label"`
	AppliedCycleID       *snowflake.ID     `gorm:"index" json:"applied_cycle_id,omitempty"`
	RelatedAppointmentID *snowflake.ID     `gorm:"index" json:"related_appointment_id,omitempty"`
	RuleID               *snowflake.ID     `gorm:"index" json:"rule_id,omitempty"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Incentive) TableName() string { return "incentives" }

// InCycle reports whether the incentive was booked against the given cycle.
func (i Incentive) InCycle(cycleID snowflake.ID) bool {
	return i.AppliedCycleID != nil && *i.AppliedCycleID == cycleID
}

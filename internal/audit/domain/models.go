package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAgent  ActorType = "agent"
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeSystem ActorType = "system"
)

// Activity log actions.
const (
	ActionReferralAdded    = "REFERRAL_ADDED"
	ActionReferralRemoved  = "REFERRAL_REMOVED"
	ActionReferralImport   = "REFERRAL_IMPORT"
	ActionStageMoved       = "STAGE_MOVED"
	ActionAppointmentAdded = "APPOINTMENT_CREATED"
	ActionAppointmentGone  = "APPOINTMENT_DELETED"
	ActionSettingsUpdated  = "SETTINGS_UPDATED"
	ActionRuleCreated      = "RULE_CREATED"
	ActionRuleToggled      = "RULE_TOGGLED"
	ActionRuleDeleted      = "RULE_DELETED"
	ActionIncentiveGranted = "INCENTIVE_GRANTED"
	ActionIncentiveRemoved = "INCENTIVE_DELETED"
	ActionCycleCreated     = "PAY_CYCLE_CREATED"
	ActionCycleUpdated     = "PAY_CYCLE_UPDATED"
	ActionCycleDeleted     = "PAY_CYCLE_DELETED"
	ActionAgentCreated     = "AGENT_CREATED"
)

// AuditLog is one entry of the activity log.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"type:text;index" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

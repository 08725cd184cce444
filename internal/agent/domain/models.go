package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Role decides which admin capabilities an agent holds.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Agent is a member of the sales team. Admins are agents with elevated capabilities.
type Agent struct {
	ID                snowflake.ID                      `gorm:"primaryKey" json:"id"`
	Name              string                            `gorm:"type:text;not null" json:"name"`
	Email             string                            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Role              Role                              `gorm:"type:text;not null;default:'agent'" json:"role"`
	DismissedCycleIDs datatypes.JSONSlice[snowflake.ID] `json:"dismissed_cycle_ids"`
	CreatedAt         time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Agent) TableName() string { return "agents" }

func (a Agent) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HasDismissed reports whether the agent hid the given closed cycle from their history.
func (a Agent) HasDismissed(cycleID snowflake.ID) bool {
	for _, id := range a.DismissedCycleIDs {
		if id == cycleID {
			return true
		}
	}
	return false
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is derived from the wall clock; it is never stored.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// PayCycle is an admin-defined payout window [StartDate, EndDate].
// The end date is inclusive up to the last instant of that day.
type PayCycle struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	StartDate time.Time    `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time    `gorm:"not null" json:"end_date"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PayCycle) TableName() string { return "pay_cycles" }

// EndOfDay returns the last representable instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Closes returns the instant after which the cycle is closed.
func (c PayCycle) Closes() time.Time {
	return EndOfDay(c.EndDate)
}

// Malformed cycles end before they start and are ignored by reporting.
func (c PayCycle) Malformed() bool {
	return c.EndDate.Before(c.StartDate)
}

// Contains reports whether t falls within [start, end-of-day(end)].
func (c PayCycle) Contains(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.Closes())
}

func (c PayCycle) StatusAt(now time.Time) Status {
	switch {
	case now.Before(c.StartDate):
		return StatusUpcoming
	case now.After(c.Closes()):
		return StatusCompleted
	default:
		return StatusActive
	}
}

// ProgressBasisPoints reports elapsed time through the cycle in 1/100ths of a percent.
func (c PayCycle) ProgressBasisPoints(now time.Time) int64 {
	if now.Before(c.StartDate) {
		return 0
	}
	end := c.Closes()
	if now.After(end) {
		return 10000
	}
	total := end.Sub(c.StartDate)
	if total <= 0 {
		return 10000
	}
	return int64(now.Sub(c.StartDate) * 10000 / total)
}

// ActiveCycle returns the first cycle whose window contains now.
func ActiveCycle(cycles []PayCycle, now time.Time) (PayCycle, bool) {
	for _, cycle := range cycles {
		if cycle.Malformed() {
			continue
		}
		if cycle.Contains(now) {
			return cycle, true
		}
	}
	return PayCycle{}, false
}

// ActiveCycleID is ActiveCycle reduced to an optional id.
func ActiveCycleID(cycles []PayCycle, now time.Time) *snowflake.ID {
	cycle, ok := ActiveCycle(cycles, now)
	if !ok {
		return nil
	}
	id := cycle.ID
	return &id
}

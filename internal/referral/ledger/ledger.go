// Package ledger keeps the referral count of an onboarded appointment in step
// with its history and turns count increases into bonus incentives.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
)

var (
	// ErrNoActiveCycle is returned when referral bonuses are logged outside an open pay cycle.
	ErrNoActiveCycle        = errors.New("no_active_cycle")
	ErrInvalidReferralCount = errors.New("invalid_referral_count")
)

// Update is the result of ApplyReferralUpdate. Incentive is nil unless the count grew.
type Update struct {
	Appointment appointmentdomain.Appointment
	Incentive   *incentivedomain.Incentive
}

// Deletion is the result of DeleteReferralEntry. IncentiveID names the linked
// incentive the caller must delete, if any.
type Deletion struct {
	Appointment appointmentdomain.Appointment
	Removed     *appointmentdomain.ReferralHistoryEntry
	IncentiveID *snowflake.ID
}

// ApplyReferralUpdate moves the referral count of appt to newCount.
//
// A positive delta appends a history entry and one incentive worth delta×rate
// linked to it. A negative delta appends an unpaid correction entry. The input
// appointment is never modified.
func ApplyReferralUpdate(appt appointmentdomain.Appointment, newCount int64, activeCycleID *snowflake.ID, rateCents int64, now time.Time, genID *snowflake.Node) (Update, error) {
	if newCount < 0 {
		return Update{Appointment: appt}, ErrInvalidReferralCount
	}
	if activeCycleID == nil {
		return Update{Appointment: appt}, ErrNoActiveCycle
	}

	delta := newCount - appt.ReferralCount
	if delta == 0 {
		return Update{Appointment: appt}, nil
	}

	out := appt.Clone()
	entry := appointmentdomain.ReferralHistoryEntry{
		ID:         genID.Generate(),
		Date:       now,
		CountDelta: delta,
	}

	var incentive *incentivedomain.Incentive
	if delta > 0 {
		cycleID := *activeCycleID
		appointmentID := appt.ID
		incentive = &incentivedomain.Incentive{
			ID:                   genID.Generate(),
			UserID:               agentdomain.AgentScope(appt.OwnerAgentID),
			AmountCents:          delta * rateCents,
			Label:                ManualLabel(delta, appt.Name),
			AppliedCycleID:       &cycleID,
			RelatedAppointmentID: &appointmentID,
			CreatedAt:            now,
		}
		incentiveID := incentive.ID
		entry.IncentiveID = &incentiveID
		stamp := now
		out.LastReferralAt = &stamp
	}

	out.ReferralHistory = append(out.ReferralHistory, entry)
	out.ReferralCount = newCount
	out.UpdatedAt = now
	return Update{Appointment: out, Incentive: incentive}, nil
}

// DeleteReferralEntry removes one history entry and reports its linked incentive.
// Deleting an unknown entry is a no-op. No open cycle is required.
func DeleteReferralEntry(appt appointmentdomain.Appointment, entryID snowflake.ID, now time.Time) Deletion {
	idx := -1
	for i, entry := range appt.ReferralHistory {
		if entry.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Deletion{Appointment: appt}
	}

	out := appt.Clone()
	removed := out.ReferralHistory[idx]
	out.ReferralHistory = append(out.ReferralHistory[:idx:idx], out.ReferralHistory[idx+1:]...)

	out.ReferralCount -= removed.CountDelta
	if out.ReferralCount < 0 {
		out.ReferralCount = 0
	}
	if out.ReferralCount == 0 {
		out.LastReferralAt = nil
	}
	out.UpdatedAt = now

	return Deletion{
		Appointment: out,
		Removed:     &removed,
		IncentiveID: removed.IncentiveID,
	}
}

// ManualLabel is the incentive label of a referral bonus logged by hand.
func ManualLabel(delta int64, clientName string) string {
	return fmt.Sprintf("Manual Ref: %d from %s", delta, clientName)
}

// ImportLabel is the incentive label of a referral bonus found by a report import.
func ImportLabel(delta int64, clientName string) string {
	return fmt.Sprintf("Ref Bonus Delta: %d Lead(s) from %s", delta, clientName)
}

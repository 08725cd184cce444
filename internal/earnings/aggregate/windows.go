// Package aggregate derives earning windows from appointments, incentives and
// pay cycles. Nothing here is stored: every view is recomputed from its inputs.
package aggregate

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
)

// Input is everything BuildEarningWindows reads. DismissedCycleIDs is honoured
// only for agent scopes.
type Input struct {
	Appointments      []appointmentdomain.Appointment
	Incentives        []incentivedomain.Incentive
	Cycles            []paycycledomain.PayCycle
	Scope             agentdomain.Scope
	ReferralRateCents int64
	DismissedCycleIDs []snowflake.ID
	Now               time.Time
}

// EarningWindow summarises one scope's earnings for one pay cycle.
type EarningWindow struct {
	CycleID        snowflake.ID                `json:"cycle_id"`
	Scope          agentdomain.Scope           `json:"scope"`
	StartDate      time.Time                   `json:"start_date"`
	EndDate        time.Time                   `json:"end_date"`
	TotalCents     int64                       `json:"total_cents"`
	OnboardedCount int                         `json:"onboarded_count"`
	IsClosed       bool                        `json:"is_closed"`
	Incentives     []incentivedomain.Incentive `json:"incentives"`
}

type Earnings struct {
	Current       *EarningWindow  `json:"current"`
	History       []EarningWindow `json:"history"`
	LifetimeCents int64           `json:"lifetime_cents"`
}

// BuildEarningWindows computes the current window, the closed history and the
// lifetime total for in.Scope. It never modifies its input.
func BuildEarningWindows(in Input) Earnings {
	appointments := ScopeAppointments(in.Appointments, in.Scope)
	incentives := ScopeIncentives(in.Incentives, in.Scope)

	out := Earnings{
		History:       []EarningWindow{},
		LifetimeCents: Lifetime(appointments, incentives, in.ReferralRateCents),
	}

	dismissed := make(map[snowflake.ID]struct{})
	if !in.Scope.IsTeam() {
		for _, id := range in.DismissedCycleIDs {
			dismissed[id] = struct{}{}
		}
	}

	windows := make([]EarningWindow, 0, len(in.Cycles))
	for _, cycle := range DedupeCycles(in.Cycles) {
		if cycle.StartDate.After(in.Now) {
			continue
		}
		windows = append(windows, buildWindow(cycle, appointments, incentives, in.Scope, in.ReferralRateCents, in.Now))
	}

	for i := range windows {
		window := windows[i]
		if !window.IsClosed {
			if out.Current == nil {
				out.Current = &window
			}
			continue
		}
		if _, ok := dismissed[window.CycleID]; ok {
			continue
		}
		out.History = append(out.History, window)
	}
	return out
}

// Contribution is what one onboarded deal is worth: its snapshot plus its referrals.
func Contribution(appt appointmentdomain.Appointment, referralRateCents int64) int64 {
	if !appt.IsOnboarded() {
		return 0
	}
	return appt.EarnedAmountCents + appt.ReferralCount*referralRateCents
}

// Lifetime sums every onboarded deal and every incentive regardless of cycle.
func Lifetime(appointments []appointmentdomain.Appointment, incentives []incentivedomain.Incentive, referralRateCents int64) int64 {
	var total int64
	for _, appt := range appointments {
		total += Contribution(appt, referralRateCents)
	}
	for _, inc := range incentives {
		total += inc.AmountCents
	}
	return total
}

// ScopeAppointments keeps the appointments owned by the scope's agent.
// The team scope keeps everything.
func ScopeAppointments(appointments []appointmentdomain.Appointment, scope agentdomain.Scope) []appointmentdomain.Appointment {
	if scope.IsTeam() {
		return appointments
	}
	agentID, ok := scope.AgentID()
	if !ok {
		return nil
	}
	out := make([]appointmentdomain.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if appt.OwnerAgentID == agentID {
			out = append(out, appt)
		}
	}
	return out
}

// ScopeIncentives keeps the scope's own incentives and the team-wide ones.
func ScopeIncentives(incentives []incentivedomain.Incentive, scope agentdomain.Scope) []incentivedomain.Incentive {
	if scope.IsTeam() {
		return incentives
	}
	out := make([]incentivedomain.Incentive, 0, len(incentives))
	for _, inc := range incentives {
		if inc.UserID == scope || inc.UserID.IsTeam() {
			out = append(out, inc)
		}
	}
	return out
}

// DedupeCycles drops malformed cycles and, among cycles sharing a start date,
// keeps the one ending last. The result is sorted by end date descending.
func DedupeCycles(cycles []paycycledomain.PayCycle) []paycycledomain.PayCycle {
	byStart := make(map[string]paycycledomain.PayCycle, len(cycles))
	for _, cycle := range cycles {
		if cycle.Malformed() {
			continue
		}
		key := cycle.StartDate.Format(time.DateOnly)
		existing, ok := byStart[key]
		if !ok || cycle.EndDate.After(existing.EndDate) ||
			(cycle.EndDate.Equal(existing.EndDate) && cycle.ID > existing.ID) {
			byStart[key] = cycle
		}
	}

	out := make([]paycycledomain.PayCycle, 0, len(byStart))
	for _, cycle := range byStart {
		out = append(out, cycle)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.After(out[j].EndDate)
		}
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func buildWindow(cycle paycycledomain.PayCycle, appointments []appointmentdomain.Appointment, incentives []incentivedomain.Incentive, scope agentdomain.Scope, referralRateCents int64, now time.Time) EarningWindow {
	window := EarningWindow{
		CycleID:    cycle.ID,
		Scope:      scope,
		StartDate:  cycle.StartDate,
		EndDate:    cycle.EndDate,
		IsClosed:   now.After(cycle.Closes()),
		Incentives: []incentivedomain.Incentive{},
	}

	for _, appt := range appointments {
		if !appt.IsOnboarded() || !cycle.Contains(appt.ScheduledAt) {
			continue
		}
		window.TotalCents += Contribution(appt, referralRateCents)
		window.OnboardedCount++
	}
	for _, inc := range incentives {
		if !inc.InCycle(cycle.ID) {
			continue
		}
		window.TotalCents += inc.AmountCents
		window.Incentives = append(window.Incentives, inc)
	}
	return window
}

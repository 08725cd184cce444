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

// TeamCycleTotal is the team's earnings in the cycle open at now, or 0 when none is.
func TeamCycleTotal(appointments []appointmentdomain.Appointment, incentives []incentivedomain.Incentive, cycles []paycycledomain.PayCycle, referralRateCents int64, now time.Time) int64 {
	earnings := BuildEarningWindows(Input{
		Appointments:      appointments,
		Incentives:        incentives,
		Cycles:            cycles,
		Scope:             agentdomain.TeamScope,
		ReferralRateCents: referralRateCents,
		Now:               now,
	})
	if earnings.Current == nil {
		return 0
	}
	return earnings.Current.TotalCents
}

type Performance struct {
	Onboards       int   `json:"onboards"`
	TotalReferrals int64 `json:"total_referrals"`
	// ReferralsPerOnboardBps is referrals per onboard in hundredths of a percent.
	ReferralsPerOnboardBps int64 `json:"referrals_per_onboard_bps"`
}

// PerformanceStats summarises one agent's onboarded book.
func PerformanceStats(appointments []appointmentdomain.Appointment, agentID snowflake.ID) Performance {
	out := Performance{}
	for _, appt := range appointments {
		if appt.OwnerAgentID != agentID || !appt.IsOnboarded() {
			continue
		}
		out.Onboards++
		out.TotalReferrals += appt.ReferralCount
	}
	if out.Onboards > 0 {
		out.ReferralsPerOnboardBps = out.TotalReferrals * 10000 / int64(out.Onboards)
	}
	return out
}

type CloserCount struct {
	CloserName string `json:"closer_name"`
	Count      int    `json:"count"`
}

type Dashboard struct {
	Total    int                             `json:"total"`
	ByStage  map[appointmentdomain.Stage]int `json:"by_stage"`
	Upcoming int                             `json:"upcoming"`
	// ConversionBps is onboarded over all appointments in hundredths of a percent.
	ConversionBps int64         `json:"conversion_bps"`
	Closers       []CloserCount `json:"closers"`
}

// DashboardStats counts the pipeline for the given scope. Closers are ordered
// by count, then name. Deals without a closer are attributed to the owner and
// are not listed.
func DashboardStats(appointments []appointmentdomain.Appointment, scope agentdomain.Scope, now time.Time) Dashboard {
	scoped := ScopeAppointments(appointments, scope)
	out := Dashboard{
		Total:   len(scoped),
		ByStage: make(map[appointmentdomain.Stage]int),
		Closers: []CloserCount{},
	}

	closers := make(map[string]int)
	for _, appt := range scoped {
		out.ByStage[appt.Stage]++
		if (appt.Stage == appointmentdomain.StagePending || appt.Stage == appointmentdomain.StageRescheduled) && appt.ScheduledAt.After(now) {
			out.Upcoming++
		}
		if appt.IsOnboarded() && appt.CloserName != "" {
			closers[appt.CloserName]++
		}
	}
	if out.Total > 0 {
		out.ConversionBps = int64(out.ByStage[appointmentdomain.StageOnboarded]) * 10000 / int64(out.Total)
	}

	for name, count := range closers {
		out.Closers = append(out.Closers, CloserCount{CloserName: name, Count: count})
	}
	sort.Slice(out.Closers, func(i, j int) bool {
		if out.Closers[i].Count != out.Closers[j].Count {
			return out.Closers[i].Count > out.Closers[j].Count
		}
		return out.Closers[i].CloserName < out.Closers[j].CloserName
	})
	return out
}

// Package commission computes the base commission owed for an onboarded deal.
//
// Every function here is pure: the same appointment, owner name and settings
// always produce the same number of cents.
package commission

import (
	"strings"

	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
)

// IsSelfClose reports whether the owning agent closed the deal themselves.
// An unset closer counts as a self-close.
func IsSelfClose(closerName, ownerAgentName string) bool {
	closer := strings.TrimSpace(closerName)
	if closer == "" {
		return true
	}
	return closer == strings.TrimSpace(ownerAgentName)
}

// ComputeBaseCommission returns the self-close rate for self-closed deals and the
// standard rate for deals closed by anyone else.
func ComputeBaseCommission(appt appointmentdomain.Appointment, ownerAgentName string, settings settingsdomain.Settings) int64 {
	if IsSelfClose(appt.CloserName, ownerAgentName) {
		return settings.SelfCommissionCents
	}
	return settings.StandardCommissionCents
}

// ResolveBase prefers an explicitly entered amount over the computed default.
func ResolveBase(appt appointmentdomain.Appointment, ownerAgentName string, settings settingsdomain.Settings, explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}
	return ComputeBaseCommission(appt, ownerAgentName, settings)
}

// Resync recomputes the snapshot of an onboarded deal under new settings while
// keeping the rule bonus recorded at its latest onboarding.
// Manually entered amounts and deals that are not onboarded are returned unchanged.
func Resync(appt appointmentdomain.Appointment, ownerAgentName string, settings settingsdomain.Settings) int64 {
	if !appt.IsOnboarded() || appt.ManualAmount {
		return appt.EarnedAmountCents
	}
	return ComputeBaseCommission(appt, ownerAgentName, settings) + appt.RuleBonusCents
}

// Package pipeline moves appointments between stages and applies the
// commission effects of entering and leaving ONBOARDED.
package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	"github.com/smallbiznis/salesdesk/internal/commission"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/incentive/rules"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
)

var (
	// ErrInvalidTransition is returned when a deal is onboarded without passing
	// through TRANSFERRED and without the manual self-onboard override.
	ErrInvalidTransition = errors.New("invalid_transition")
)

// NurtureDelay is how long a declined lead waits before follow-up.
const NurtureDelay = 30 * 24 * time.Hour

type Stage = appointmentdomain.Stage

// Request is a fully attributed stage move.
type Request struct {
	To                Stage
	ManualSelfOnboard bool
	// CloserName overrides the recorded closer when entering ONBOARDED.
	CloserName        string
	ScheduledAt       *time.Time
	EarnedAmountCents *int64
}

// Env carries everything a transition reads besides the appointment itself.
type Env struct {
	OwnerAgentName string
	Settings       settingsdomain.Settings
	Rules          []incentivedomain.IncentiveRule
	ActiveCycleID  *snowflake.ID
	Now            time.Time
	GenID          *snowflake.Node
}

// Result holds the new appointment and the side effects the caller must persist
// together with it.
type Result struct {
	Appointment appointmentdomain.Appointment
	From        Stage
	Fired       []incentivedomain.Incentive
	RuleUpdates []rules.RuleUpdate
	BaseCents   int64
}

// Transition applies req to appt. The input appointment is never modified.
func Transition(appt appointmentdomain.Appointment, req Request, env Env) (Result, error) {
	from := appt.Stage
	if !req.To.Valid() {
		return Result{Appointment: appt, From: from}, appointmentdomain.ErrInvalidStage
	}

	if from == appointmentdomain.StageOnboarded && req.To == appointmentdomain.StageOnboarded {
		return Result{Appointment: appt, From: from}, nil
	}

	if req.To == appointmentdomain.StageOnboarded &&
		from != appointmentdomain.StageTransferred && !req.ManualSelfOnboard {
		return Result{Appointment: appt, From: from}, ErrInvalidTransition
	}

	out := appt.Clone()
	out.Stage = req.To
	out.UpdatedAt = env.Now
	if req.ScheduledAt != nil && !req.ScheduledAt.IsZero() {
		out.ScheduledAt = *req.ScheduledAt
	}

	result := Result{From: from}
	switch req.To {
	case appointmentdomain.StageOnboarded:
		closer := strings.TrimSpace(req.CloserName)
		if req.ManualSelfOnboard {
			closer = env.OwnerAgentName
		}
		if closer != "" {
			out.CloserName = closer
		}
		result = onboard(out, from, req.EarnedAmountCents, env)
		result.From = from
		return result, nil
	case appointmentdomain.StageDeclined:
		nurture := env.Now.Add(NurtureDelay)
		out.NurtureDate = &nurture
	}

	clearEarnings(&out)
	result.Appointment = out
	return result, nil
}

// Options select the initial stage of a new appointment.
type Options struct {
	// LiveTransfer starts the lead at TRANSFERRED.
	LiveTransfer bool
	// SelfClose onboards a live transfer at once with the owner as closer.
	SelfClose         bool
	EarnedAmountCents *int64
}

// Create resolves the initial stage of draft and, for self-closed live
// transfers, applies the onboarding effects.
func Create(draft appointmentdomain.Appointment, opts Options, env Env) Result {
	out := draft.Clone()
	out.CreatedAt = env.Now
	out.UpdatedAt = env.Now
	out.ReferralCount = 0
	out.ReferralHistory = nil
	clearEarnings(&out)

	if !opts.LiveTransfer {
		out.Type = appointmentdomain.TypeAppointment
		out.Stage = appointmentdomain.StagePending
		return Result{Appointment: out, From: out.Stage}
	}

	out.Type = appointmentdomain.TypeTransfer
	out.Stage = appointmentdomain.StageTransferred
	if !opts.SelfClose {
		return Result{Appointment: out, From: out.Stage}
	}

	out.Stage = appointmentdomain.StageOnboarded
	out.CloserName = env.OwnerAgentName
	return onboard(out, appointmentdomain.StageTransferred, opts.EarnedAmountCents, env)
}

func onboard(appt appointmentdomain.Appointment, from Stage, explicit *int64, env Env) Result {
	base := commission.ResolveBase(appt, env.OwnerAgentName, env.Settings, explicit)
	eval := rules.Evaluate(env.Rules, rules.Event{
		AppointmentID: appt.ID,
		OwnerAgentID:  appt.OwnerAgentID,
		FromStage:     from,
		ToStage:       appointmentdomain.StageOnboarded,
		ActiveCycleID: env.ActiveCycleID,
		Now:           env.Now,
	}, env.GenID)

	appt.Stage = appointmentdomain.StageOnboarded
	appt.RuleBonusCents = eval.BonusCents()
	appt.EarnedAmountCents = base + appt.RuleBonusCents
	appt.ManualAmount = explicit != nil
	onboardedAt := env.Now
	appt.OnboardedAt = &onboardedAt
	appt.NurtureDate = nil

	return Result{
		Appointment: appt,
		From:        from,
		Fired:       eval.Fired,
		RuleUpdates: eval.Updates,
		BaseCents:   base,
	}
}

func clearEarnings(appt *appointmentdomain.Appointment) {
	appt.EarnedAmountCents = 0
	appt.RuleBonusCents = 0
	appt.ManualAmount = false
	appt.OnboardedAt = nil
}

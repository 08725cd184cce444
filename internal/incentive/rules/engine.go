// Package rules decides which standing incentive rules fire for an onboarding
// and how their consumption counters move.
package rules

import (
	"time"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
)

// Event describes one stage transition of one appointment.
type Event struct {
	AppointmentID snowflake.ID
	OwnerAgentID  snowflake.ID
	FromStage     appointmentdomain.Stage
	ToStage       appointmentdomain.Stage
	// ActiveCycleID is the cycle fired incentives are booked against; nil books them to no cycle.
	ActiveCycleID *snowflake.ID
	Now           time.Time
}

// Completes reports whether the event is an entry into ONBOARDED.
func (e Event) Completes() bool {
	return e.ToStage == appointmentdomain.StageOnboarded && e.FromStage != appointmentdomain.StageOnboarded
}

// RuleUpdate is the counter value a rule must be persisted with after firing.
type RuleUpdate struct {
	RuleID          snowflake.ID `json:"rule_id"`
	NewCurrentCount int64        `json:"new_current_count"`
}

type Evaluation struct {
	Fired   []incentivedomain.Incentive `json:"fired"`
	Updates []RuleUpdate                `json:"updates"`
}

// BonusCents sums the amounts of every fired incentive.
func (e Evaluation) BonusCents() int64 {
	var total int64
	for _, inc := range e.Fired {
		total += inc.AmountCents
	}
	return total
}

// Evaluate fires every active rule that matches the event's owner, the current
// time and its remaining capacity. Rules fire independently and their bonuses add up.
// The input rules are not modified; counter changes are returned as updates.
func Evaluate(rules []incentivedomain.IncentiveRule, event Event, genID *snowflake.Node) Evaluation {
	out := Evaluation{}
	if !event.Completes() {
		return out
	}

	for _, rule := range rules {
		if !Matches(rule, event) {
			continue
		}

		appointmentID := event.AppointmentID
		ruleID := rule.ID
		out.Fired = append(out.Fired, incentivedomain.Incentive{
			ID:                   genID.Generate(),
			UserID:               agentScope(event.OwnerAgentID),
			AmountCents:          rule.ValueCents,
			Label:                rule.Label,
			AppliedCycleID:       copyID(event.ActiveCycleID),
			RelatedAppointmentID: &appointmentID,
			RuleID:               &ruleID,
			CreatedAt:            event.Now,
		})
		out.Updates = append(out.Updates, RuleUpdate{
			RuleID:          rule.ID,
			NewCurrentCount: rule.CurrentCount + 1,
		})
	}
	return out
}

// Matches applies the target, time and capacity checks to one rule.
func Matches(rule incentivedomain.IncentiveRule, event Event) bool {
	if !rule.IsActive {
		return false
	}
	if !rule.Target.Includes(event.OwnerAgentID) {
		return false
	}
	if !rule.InWindow(event.Now) {
		return false
	}
	return !rule.Exhausted()
}

// ApplyUpdates returns a copy of rules with the counter updates applied.
func ApplyUpdates(rules []incentivedomain.IncentiveRule, updates []RuleUpdate) []incentivedomain.IncentiveRule {
	byID := make(map[snowflake.ID]int64, len(updates))
	for _, u := range updates {
		byID[u.RuleID] = u.NewCurrentCount
	}
	out := make([]incentivedomain.IncentiveRule, len(rules))
	for i, rule := range rules {
		if count, ok := byID[rule.ID]; ok {
			rule.CurrentCount = count
		}
		out[i] = rule
	}
	return out
}

func copyID(id *snowflake.ID) *snowflake.ID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

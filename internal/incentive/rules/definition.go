package rules

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
)

// Definition is a validated rule-creation request.
type Definition struct {
	Target      agentdomain.Scope
	Kind        incentivedomain.RuleKind
	ValueCents  int64
	Label       string
	StartTime   *time.Time
	EndTime     *time.Time
	TargetCount *int64
}

// NewRule validates a definition and fills in the kind-specific fields.
// Every kind is capped only by an explicit TargetCount; UP_FOR_GRABS rules must set one.
func NewRule(id snowflake.ID, def Definition, now time.Time) (incentivedomain.IncentiveRule, error) {
	if def.Target == "" {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidTarget
	}
	if !def.Kind.Valid() {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidKind
	}
	if def.ValueCents <= 0 {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidValue
	}
	label := strings.TrimSpace(def.Label)
	if label == "" {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidLabel
	}
	if def.StartTime != nil && def.EndTime != nil && def.EndTime.Before(*def.StartTime) {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidWindow
	}
	if def.TargetCount != nil && *def.TargetCount <= 0 {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidTargetCount
	}

	targetCount := copyCount(def.TargetCount)
	if def.Kind == incentivedomain.RuleKindUpForGrabs && targetCount == nil {
		return incentivedomain.IncentiveRule{}, incentivedomain.ErrInvalidTargetCount
	}

	return incentivedomain.IncentiveRule{
		ID:           id,
		Target:       def.Target,
		Kind:         def.Kind,
		ValueCents:   def.ValueCents,
		Label:        label,
		StartTime:    utcTime(def.StartTime),
		EndTime:      utcTime(def.EndTime),
		TargetCount:  targetCount,
		CurrentCount: 0,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}

func agentScope(id snowflake.ID) agentdomain.Scope {
	return agentdomain.AgentScope(id)
}

func copyCount(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

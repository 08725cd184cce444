package rules

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func onboardEvent(node *snowflake.Node, owner snowflake.ID, now time.Time) Event {
	return Event{
		AppointmentID: node.Generate(),
		OwnerAgentID:  owner,
		FromStage:     appointmentdomain.StageTransferred,
		ToStage:       appointmentdomain.StageOnboarded,
		Now:           now,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestEvaluate_UpForGrabsRespectsCapacity(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cycleID := node.Generate()

	rule, err := NewRule(node.Generate(), Definition{
		Target:      agentdomain.TeamScope,
		Kind:        incentivedomain.RuleKindUpForGrabs,
		ValueCents:  5000,
		Label:       "First five",
		TargetCount: int64Ptr(5),
	}, now)
	require.NoError(t, err)

	current := []incentivedomain.IncentiveRule{rule}
	fired := 0
	for i := 0; i < 8; i++ {
		event := onboardEvent(node, node.Generate(), now)
		event.ActiveCycleID = &cycleID
		eval := Evaluate(current, event, node)
		fired += len(eval.Fired)
		current = ApplyUpdates(current, eval.Updates)
	}

	assert.Equal(t, 5, fired)
	assert.Equal(t, int64(5), current[0].CurrentCount)
	assert.True(t, current[0].Exhausted())
}

func TestEvaluate_OneTimeTeamRulePaysEveryAgent(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	rule, err := NewRule(node.Generate(), Definition{
		Target:     agentdomain.TeamScope,
		Kind:       incentivedomain.RuleKindOneTime,
		ValueCents: 10000,
		Label:      "Welcome bonus",
	}, now)
	require.NoError(t, err)
	assert.Nil(t, rule.TargetCount)

	current := []incentivedomain.IncentiveRule{rule}
	for i := 0; i < 2; i++ {
		eval := Evaluate(current, onboardEvent(node, node.Generate(), now), node)
		require.Len(t, eval.Fired, 1)
		current = ApplyUpdates(current, eval.Updates)
	}
	assert.Equal(t, int64(2), current[0].CurrentCount)
}

func TestEvaluate_OneTimeHonoursExplicitCap(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := node.Generate()
	one := int64(1)

	rule, err := NewRule(node.Generate(), Definition{
		Target:      agentdomain.AgentScope(owner),
		Kind:        incentivedomain.RuleKindOneTime,
		ValueCents:  10000,
		Label:       "Welcome bonus",
		TargetCount: &one,
	}, now)
	require.NoError(t, err)

	first := Evaluate([]incentivedomain.IncentiveRule{rule}, onboardEvent(node, owner, now), node)
	require.Len(t, first.Fired, 1)

	after := ApplyUpdates([]incentivedomain.IncentiveRule{rule}, first.Updates)
	second := Evaluate(after, onboardEvent(node, owner, now), node)
	assert.Empty(t, second.Fired)
}

func TestEvaluate_FiredIncentiveShape(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := node.Generate()
	cycleID := node.Generate()

	rule, err := NewRule(node.Generate(), Definition{
		Target:     agentdomain.TeamScope,
		Kind:       incentivedomain.RuleKindPerDeal,
		ValueCents: 2500,
		Label:      "Spring push",
	}, now)
	require.NoError(t, err)

	event := onboardEvent(node, owner, now)
	event.ActiveCycleID = &cycleID
	eval := Evaluate([]incentivedomain.IncentiveRule{rule}, event, node)

	require.Len(t, eval.Fired, 1)
	inc := eval.Fired[0]
	assert.Equal(t, agentdomain.AgentScope(owner), inc.UserID)
	assert.Equal(t, int64(2500), inc.AmountCents)
	assert.Equal(t, "Spring push", inc.Label)
	require.NotNil(t, inc.AppliedCycleID)
	assert.Equal(t, cycleID, *inc.AppliedCycleID)
	require.NotNil(t, inc.RelatedAppointmentID)
	assert.Equal(t, event.AppointmentID, *inc.RelatedAppointmentID)
	require.NotNil(t, inc.RuleID)
	assert.Equal(t, rule.ID, *inc.RuleID)
	assert.Equal(t, []RuleUpdate{{RuleID: rule.ID, NewCurrentCount: 1}}, eval.Updates)
}

func TestEvaluate_Filters(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := node.Generate()
	other := node.Generate()
	past := now.Add(-48 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	base := incentivedomain.IncentiveRule{
		Target:     agentdomain.TeamScope,
		Kind:       incentivedomain.RuleKindPerDeal,
		ValueCents: 100,
		Label:      "x",
		IsActive:   true,
	}

	inactive := base
	inactive.ID = node.Generate()
	inactive.IsActive = false

	otherAgent := base
	otherAgent.ID = node.Generate()
	otherAgent.Target = agentdomain.AgentScope(other)

	expired := base
	expired.ID = node.Generate()
	expired.StartTime = &past
	expired.EndTime = &yesterday

	notStarted := base
	notStarted.ID = node.Generate()
	notStarted.StartTime = &tomorrow

	full := base
	full.ID = node.Generate()
	full.TargetCount = int64Ptr(2)
	full.CurrentCount = 2

	live := base
	live.ID = node.Generate()
	live.StartTime = &yesterday
	live.EndTime = &tomorrow

	eval := Evaluate([]incentivedomain.IncentiveRule{inactive, otherAgent, expired, notStarted, full, live}, onboardEvent(node, owner, now), node)
	require.Len(t, eval.Fired, 1)
	assert.Equal(t, live.ID, *eval.Fired[0].RuleID)
}

func TestEvaluate_AdditiveBonuses(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := node.Generate()

	a := incentivedomain.IncentiveRule{ID: node.Generate(), Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1000, Label: "a", IsActive: true}
	b := incentivedomain.IncentiveRule{ID: node.Generate(), Target: agentdomain.AgentScope(owner), Kind: incentivedomain.RuleKindPerDeal, ValueCents: 700, Label: "b", IsActive: true}

	eval := Evaluate([]incentivedomain.IncentiveRule{a, b}, onboardEvent(node, owner, now), node)
	assert.Len(t, eval.Fired, 2)
	assert.Equal(t, int64(1700), eval.BonusCents())
}

func TestEvaluate_OnlyOnOnboardEntry(t *testing.T) {
	node := mustNode(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := node.Generate()
	rule := incentivedomain.IncentiveRule{ID: node.Generate(), Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1000, Label: "a", IsActive: true}

	event := onboardEvent(node, owner, now)
	event.ToStage = appointmentdomain.StageDeclined
	assert.Empty(t, Evaluate([]incentivedomain.IncentiveRule{rule}, event, node).Fired)

	event = onboardEvent(node, owner, now)
	event.FromStage = appointmentdomain.StageOnboarded
	assert.Empty(t, Evaluate([]incentivedomain.IncentiveRule{rule}, event, node).Fired)
}

func TestNewRule_Validation(t *testing.T) {
	node := mustNode(t)
	now := time.Now().UTC()
	start := now
	end := now.Add(-time.Hour)

	cases := []struct {
		name string
		def  Definition
		err  error
	}{
		{"missing target", Definition{Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1, Label: "x"}, incentivedomain.ErrInvalidTarget},
		{"bad kind", Definition{Target: agentdomain.TeamScope, Kind: "WEEKLY", ValueCents: 1, Label: "x"}, incentivedomain.ErrInvalidKind},
		{"zero value", Definition{Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, Label: "x"}, incentivedomain.ErrInvalidValue},
		{"blank label", Definition{Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1, Label: "  "}, incentivedomain.ErrInvalidLabel},
		{"inverted window", Definition{Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1, Label: "x", StartTime: &start, EndTime: &end}, incentivedomain.ErrInvalidWindow},
		{"grabs without cap", Definition{Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindUpForGrabs, ValueCents: 1, Label: "x"}, incentivedomain.ErrInvalidTargetCount},
		{"non-positive cap", Definition{Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal, ValueCents: 1, Label: "x", TargetCount: int64Ptr(0)}, incentivedomain.ErrInvalidTargetCount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRule(node.Generate(), tc.def, now)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

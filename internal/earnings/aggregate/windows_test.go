package aggregate

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return node
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	agentA, agentB snowflake.ID
	closed, open   paycycledomain.PayCycle
	appointments   []appointmentdomain.Appointment
	incentives     []incentivedomain.Incentive
	now            time.Time
}

func newFixture(node *snowflake.Node) fixture {
	f := fixture{
		agentA: node.Generate(),
		agentB: node.Generate(),
		now:    time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	f.closed = paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31)}
	f.open = paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 28)}

	closedID := f.closed.ID
	openID := f.open.ID
	f.appointments = []appointmentdomain.Appointment{
		{ID: node.Generate(), OwnerAgentID: f.agentA, Stage: appointmentdomain.StageOnboarded, ScheduledAt: time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC), EarnedAmountCents: 300, ReferralCount: 1},
		{ID: node.Generate(), OwnerAgentID: f.agentA, Stage: appointmentdomain.StageOnboarded, ScheduledAt: day(2025, 2, 3), EarnedAmountCents: 200},
		{ID: node.Generate(), OwnerAgentID: f.agentA, Stage: appointmentdomain.StagePending, ScheduledAt: day(2025, 2, 4)},
		{ID: node.Generate(), OwnerAgentID: f.agentB, Stage: appointmentdomain.StageOnboarded, ScheduledAt: day(2025, 2, 5), EarnedAmountCents: 400, ReferralCount: 2},
		// outside every cycle, still counted in lifetime
		{ID: node.Generate(), OwnerAgentID: f.agentB, Stage: appointmentdomain.StageOnboarded, ScheduledAt: day(2024, 6, 1), EarnedAmountCents: 300},
	}
	f.incentives = []incentivedomain.Incentive{
		{ID: node.Generate(), UserID: agentdomain.AgentScope(f.agentA), AmountCents: 1000, AppliedCycleID: &closedID},
		{ID: node.Generate(), UserID: agentdomain.AgentScope(f.agentB), AmountCents: 700, AppliedCycleID: &openID},
		{ID: node.Generate(), UserID: agentdomain.TeamScope, AmountCents: 50, AppliedCycleID: &openID},
		{ID: node.Generate(), UserID: agentdomain.AgentScope(f.agentB), AmountCents: 25},
	}
	return f
}

func (f fixture) input(scope agentdomain.Scope) Input {
	return Input{
		Appointments:      f.appointments,
		Incentives:        f.incentives,
		Cycles:            []paycycledomain.PayCycle{f.closed, f.open},
		Scope:             scope,
		ReferralRateCents: 200,
		Now:               f.now,
	}
}

func TestBuildEarningWindows_AgentScope(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	got := BuildEarningWindows(f.input(agentdomain.AgentScope(f.agentA)))

	// 300 + 1×200 + 200 + 1000 + 50
	assert.Equal(t, int64(1750), got.LifetimeCents)
	require.NotNil(t, got.Current)
	assert.Equal(t, f.open.ID, got.Current.CycleID)
	assert.Equal(t, int64(250), got.Current.TotalCents)
	assert.Equal(t, 1, got.Current.OnboardedCount)
	assert.False(t, got.Current.IsClosed)

	require.Len(t, got.History, 1)
	// the deal at 22:00 on the last day belongs to the closed cycle
	assert.Equal(t, int64(1500), got.History[0].TotalCents)
	assert.True(t, got.History[0].IsClosed)
}

func TestBuildEarningWindows_Idempotent(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	in := f.input(agentdomain.TeamScope)
	first := BuildEarningWindows(in)
	second := BuildEarningWindows(in)
	assert.Equal(t, first, second)
}

func TestBuildEarningWindows_LifetimeAdditivity(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	team := BuildEarningWindows(f.input(agentdomain.TeamScope)).LifetimeCents
	a := BuildEarningWindows(f.input(agentdomain.AgentScope(f.agentA))).LifetimeCents
	b := BuildEarningWindows(f.input(agentdomain.AgentScope(f.agentB))).LifetimeCents

	var teamOnly int64
	for _, inc := range f.incentives {
		if inc.UserID.IsTeam() {
			teamOnly += inc.AmountCents
		}
	}
	// each agent view counts team incentives once
	assert.Equal(t, team, a+b-teamOnly)
}

func TestBuildEarningWindows_DismissedHonouredForAgentOnly(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	in := f.input(agentdomain.AgentScope(f.agentA))
	in.DismissedCycleIDs = []snowflake.ID{f.closed.ID}
	assert.Empty(t, BuildEarningWindows(in).History)

	team := f.input(agentdomain.TeamScope)
	team.DismissedCycleIDs = []snowflake.ID{f.closed.ID}
	assert.Len(t, BuildEarningWindows(team).History, 1)
}

func TestBuildEarningWindows_SkipsFutureAndMalformedCycles(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	future := paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 31)}
	malformed := paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2025, 1, 20), EndDate: day(2025, 1, 10)}

	in := f.input(agentdomain.TeamScope)
	in.Cycles = append(in.Cycles, future, malformed)
	got := BuildEarningWindows(in)

	require.NotNil(t, got.Current)
	assert.Equal(t, f.open.ID, got.Current.CycleID)
	require.Len(t, got.History, 1)
	assert.Equal(t, f.closed.ID, got.History[0].CycleID)
}

func TestBuildEarningWindows_NoCycles(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	in := f.input(agentdomain.TeamScope)
	in.Cycles = nil
	got := BuildEarningWindows(in)
	assert.Nil(t, got.Current)
	assert.Empty(t, got.History)
	assert.NotZero(t, got.LifetimeCents)
}

func TestDedupeCycles_SameStartKeepsLaterEnd(t *testing.T) {
	node := mustNode(t)
	short := paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 7)}
	long := paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 14)}

	got := DedupeCycles([]paycycledomain.PayCycle{short, long})
	require.Len(t, got, 1)
	assert.Equal(t, long.ID, got[0].ID)

	got = DedupeCycles([]paycycledomain.PayCycle{long, short})
	require.Len(t, got, 1)
	assert.Equal(t, long.ID, got[0].ID)
}

func TestBuildEarningWindows_SelfCloseWithReferralsScenario(t *testing.T) {
	node := mustNode(t)
	agentID := node.Generate()
	cycle := paycycledomain.PayCycle{ID: node.Generate(), StartDate: day(2025, 5, 1), EndDate: day(2025, 5, 15)}

	// 300 self-close base + 100 team rule, two referrals at 500
	appt := appointmentdomain.Appointment{
		ID:                node.Generate(),
		OwnerAgentID:      agentID,
		Stage:             appointmentdomain.StageOnboarded,
		ScheduledAt:       day(2025, 5, 2),
		EarnedAmountCents: 400,
		ReferralCount:     2,
	}

	got := BuildEarningWindows(Input{
		Appointments:      []appointmentdomain.Appointment{appt},
		Cycles:            []paycycledomain.PayCycle{cycle},
		Scope:             agentdomain.AgentScope(agentID),
		ReferralRateCents: 500,
		Now:               day(2025, 5, 3),
	})

	assert.Equal(t, int64(1400), got.LifetimeCents)
	require.NotNil(t, got.Current)
	assert.Equal(t, int64(1400), got.Current.TotalCents)
}

package aggregate

import (
	"testing"
	"time"

	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/stretchr/testify/assert"
)

func TestTeamCycleTotal(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	// 200 + 400 + 2×200 + 700 + 50
	got := TeamCycleTotal(f.appointments, f.incentives, []paycycledomain.PayCycle{f.closed, f.open}, 200, f.now)
	assert.Equal(t, int64(1750), got)

	assert.Zero(t, TeamCycleTotal(f.appointments, f.incentives, nil, 200, f.now))
}

func TestPerformanceStats(t *testing.T) {
	node := mustNode(t)
	f := newFixture(node)

	a := PerformanceStats(f.appointments, f.agentA)
	assert.Equal(t, 2, a.Onboards)
	assert.Equal(t, int64(1), a.TotalReferrals)
	assert.Equal(t, int64(5000), a.ReferralsPerOnboardBps)

	none := PerformanceStats(f.appointments, node.Generate())
	assert.Zero(t, none.Onboards)
	assert.Zero(t, none.ReferralsPerOnboardBps)
}

func TestDashboardStats(t *testing.T) {
	node := mustNode(t)
	agentID := node.Generate()
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

	appointments := []appointmentdomain.Appointment{
		{OwnerAgentID: agentID, Stage: appointmentdomain.StageOnboarded, CloserName: "Maya"},
		{OwnerAgentID: agentID, Stage: appointmentdomain.StageOnboarded, CloserName: "Maya"},
		{OwnerAgentID: agentID, Stage: appointmentdomain.StageOnboarded, CloserName: "Leo"},
		{OwnerAgentID: agentID, Stage: appointmentdomain.StagePending, ScheduledAt: now.Add(time.Hour)},
		{OwnerAgentID: node.Generate(), Stage: appointmentdomain.StageDeclined},
	}

	got := DashboardStats(appointments, agentdomain.AgentScope(agentID), now)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 3, got.ByStage[appointmentdomain.StageOnboarded])
	assert.Equal(t, 1, got.Upcoming)
	assert.Equal(t, int64(7500), got.ConversionBps)
	assert.Equal(t, []CloserCount{{CloserName: "Maya", Count: 2}, {CloserName: "Leo", Count: 1}}, got.Closers)

	team := DashboardStats(appointments, agentdomain.TeamScope, now)
	assert.Equal(t, 5, team.Total)
	assert.Equal(t, int64(6000), team.ConversionBps)
}

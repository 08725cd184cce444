package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	agentrepository "github.com/smallbiznis/salesdesk/internal/agent/repository"
	"github.com/smallbiznis/salesdesk/internal/appointment/domain"
	"github.com/smallbiznis/salesdesk/internal/appointment/repository"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	auditrepository "github.com/smallbiznis/salesdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/salesdesk/internal/audit/service"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	incentiverepository "github.com/smallbiznis/salesdesk/internal/incentive/repository"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	paycyclerepository "github.com/smallbiznis/salesdesk/internal/paycycle/repository"
	"github.com/smallbiznis/salesdesk/internal/pipeline"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	settingsrepository "github.com/smallbiznis/salesdesk/internal/settings/repository"
	settingsservice "github.com/smallbiznis/salesdesk/internal/settings/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	settings settingsdomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	owner    agentdomain.Agent
	cycle    paycycledomain.PayCycle
}

func setupAppointmentService(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:appointment_%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&agentdomain.Agent{},
		&domain.Appointment{},
		&incentivedomain.IncentiveRule{},
		&incentivedomain.Incentive{},
		&paycycledomain.PayCycle{},
		&settingsdomain.Record{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	owner := agentdomain.Agent{ID: node.Generate(), Name: "Alice", Email: "alice@example.com", Role: agentdomain.RoleAgent}
	require.NoError(t, db.Create(&owner).Error)
	cycle := paycycledomain.PayCycle{
		ID:        node.Generate(),
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&cycle).Error)

	agentRepo := agentrepository.Provide()
	appointmentRepo := repository.Provide()
	incentiveRepo := incentiverepository.Provide()
	cycleRepo := paycyclerepository.Provide()

	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:              db,
		Log:             zap.NewNop(),
		Clock:           clk,
		Repo:            settingsrepository.Provide(),
		Defaults:        config.NewStaticCommissionConfigHolder(config.DefaultCommissionConfig()),
		AgentRepo:       agentRepo,
		AppointmentRepo: appointmentRepo,
		CycleRepo:       cycleRepo,
	})

	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Repo:          appointmentRepo,
		AgentRepo:     agentRepo,
		CycleRepo:     cycleRepo,
		RuleRepo:      incentiverepository.ProvideRules(),
		IncentiveRepo: incentiveRepo,
		SettingsSvc:   settingsSvc,
		AuditSvc: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  auditrepository.Provide(),
		}),
		Metrics: metrics.NewNoop(),
	})
	return fixture{svc: svc, settings: settingsSvc, db: db, node: node, clk: clk, owner: owner, cycle: cycle}
}

func (f fixture) create(t *testing.T, req domain.CreateAppointmentRequest) domain.Appointment {
	t.Helper()
	if req.OwnerAgentID == "" {
		req.OwnerAgentID = f.owner.ID.String()
	}
	if req.Name == "" {
		req.Name = "John Doe"
	}
	if req.ScheduledAt.IsZero() {
		req.ScheduledAt = time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)
	}
	appt, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return appt
}

func (f fixture) incentives(t *testing.T) []incentivedomain.Incentive {
	t.Helper()
	var out []incentivedomain.Incentive
	require.NoError(t, f.db.Order("created_at asc").Find(&out).Error)
	return out
}

func TestCreate_InitialStages(t *testing.T) {
	f := setupAppointmentService(t)

	pending := f.create(t, domain.CreateAppointmentRequest{Phone: " 555-0100 "})
	assert.Equal(t, domain.StagePending, pending.Stage)
	assert.Equal(t, domain.TypeAppointment, pending.Type)
	assert.Equal(t, "555-0100", pending.Phone)
	assert.Zero(t, pending.EarnedAmountCents)

	transfer := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true})
	assert.Equal(t, domain.StageTransferred, transfer.Stage)
	assert.Equal(t, domain.TypeTransfer, transfer.Type)

	closed := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true, SelfClose: true})
	assert.Equal(t, domain.StageOnboarded, closed.Stage)
	assert.Equal(t, "Alice", closed.CloserName)
	assert.Equal(t, int64(300), closed.EarnedAmountCents)
	require.NotNil(t, closed.OnboardedAt)
}

func TestCreate_Validation(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateAppointmentRequest{OwnerAgentID: f.owner.ID.String(), ScheduledAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = f.svc.Create(ctx, domain.CreateAppointmentRequest{OwnerAgentID: f.node.Generate().String(), Name: "x", ScheduledAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
	_, err = f.svc.Create(ctx, domain.CreateAppointmentRequest{OwnerAgentID: f.owner.ID.String(), Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidScheduledAt)
}

func TestMoveStage_OnboardFiresTeamRule(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	rule := incentivedomain.IncentiveRule{
		ID:         f.node.Generate(),
		Target:     agentdomain.TeamScope,
		Kind:       incentivedomain.RuleKindPerDeal,
		ValueCents: 200,
		Label:      "Team push",
		IsActive:   true,
		CreatedAt:  f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&rule).Error)

	appt := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true})
	moved, err := f.svc.MoveStage(ctx, domain.MoveStageRequest{
		ID:         appt.ID.String(),
		Stage:      domain.StageOnboarded,
		CloserName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageOnboarded, moved.Stage)
	assert.Equal(t, "Bob", moved.CloserName)
	assert.Equal(t, int64(400), moved.EarnedAmountCents)

	fired := f.incentives(t)
	require.Len(t, fired, 1)
	assert.Equal(t, int64(200), fired[0].AmountCents)
	assert.Equal(t, agentdomain.AgentScope(f.owner.ID), fired[0].UserID)
	require.NotNil(t, fired[0].AppliedCycleID)
	assert.Equal(t, f.cycle.ID, *fired[0].AppliedCycleID)
	require.NotNil(t, fired[0].RuleID)
	assert.Equal(t, rule.ID, *fired[0].RuleID)

	var stored incentivedomain.IncentiveRule
	require.NoError(t, f.db.First(&stored, "id = ?", rule.ID).Error)
	assert.Equal(t, int64(1), stored.CurrentCount)

	// re-entering ONBOARDED is a no-op
	again, err := f.svc.MoveStage(ctx, domain.MoveStageRequest{ID: appt.ID.String(), Stage: domain.StageOnboarded})
	require.NoError(t, err)
	assert.Equal(t, int64(400), again.EarnedAmountCents)
	assert.Len(t, f.incentives(t), 1)
}

func TestRetroactiveSync_AfterReonboardKeepsLatestRuleBonus(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	rule := incentivedomain.IncentiveRule{
		ID:         f.node.Generate(),
		Target:     agentdomain.TeamScope,
		Kind:       incentivedomain.RuleKindPerDeal,
		ValueCents: 200,
		Label:      "Team push",
		IsActive:   true,
		CreatedAt:  f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&rule).Error)

	appt := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true})
	moves := []domain.MoveStageRequest{
		{ID: appt.ID.String(), Stage: domain.StageOnboarded, CloserName: "Bob"},
		{ID: appt.ID.String(), Stage: domain.StageTransferred},
		{ID: appt.ID.String(), Stage: domain.StageOnboarded, CloserName: "Bob"},
	}
	var moved domain.Appointment
	for _, req := range moves {
		f.clk.Advance(time.Minute)
		var err error
		moved, err = f.svc.MoveStage(ctx, req)
		require.NoError(t, err)
	}
	require.Equal(t, int64(400), moved.EarnedAmountCents)
	assert.Equal(t, int64(200), moved.RuleBonusCents)
	// both onboardings keep their rule payout
	assert.Len(t, f.incentives(t), 2)

	current, err := f.settings.Get(ctx)
	require.NoError(t, err)
	resp, err := f.settings.Update(ctx, settingsdomain.UpdateSettingsRequest{Settings: current, SyncRetroactive: true})
	require.NoError(t, err)
	assert.Zero(t, resp.ResyncedCount)
	assert.Zero(t, resp.ResyncDeltaCents)

	reloaded, err := f.svc.GetByID(ctx, appt.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(400), reloaded.EarnedAmountCents)
}

func TestMoveStage_RejectsOnboardWithoutTransfer(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	appt := f.create(t, domain.CreateAppointmentRequest{})
	_, err := f.svc.MoveStage(ctx, domain.MoveStageRequest{ID: appt.ID.String(), Stage: domain.StageOnboarded})
	assert.ErrorIs(t, err, pipeline.ErrInvalidTransition)

	stored, err := f.svc.GetByID(ctx, appt.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StagePending, stored.Stage)

	selfOnboarded, err := f.svc.MoveStage(ctx, domain.MoveStageRequest{
		ID:                appt.ID.String(),
		Stage:             domain.StageOnboarded,
		ManualSelfOnboard: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", selfOnboarded.CloserName)
	assert.Equal(t, int64(300), selfOnboarded.EarnedAmountCents)
}

func TestMoveStage_LeavingOnboardedClearsEarnings(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	appt := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true, SelfClose: true})
	require.Equal(t, int64(300), appt.EarnedAmountCents)

	declined, err := f.svc.MoveStage(ctx, domain.MoveStageRequest{ID: appt.ID.String(), Stage: "declined"})
	require.NoError(t, err)
	assert.Equal(t, domain.StageDeclined, declined.Stage)
	assert.Zero(t, declined.EarnedAmountCents)
	require.NotNil(t, declined.NurtureDate)
	assert.True(t, declined.NurtureDate.Equal(f.clk.Now().Add(pipeline.NurtureDelay)))

	stored, err := f.svc.GetByID(ctx, appt.ID.String())
	require.NoError(t, err)
	assert.Zero(t, stored.EarnedAmountCents)
	assert.Nil(t, stored.OnboardedAt)

	_, err = f.svc.MoveStage(ctx, domain.MoveStageRequest{ID: appt.ID.String(), Stage: "ACTIVATED"})
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestDelete_KeepsIncentives(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	rule := incentivedomain.IncentiveRule{
		ID: f.node.Generate(), Target: agentdomain.TeamScope, Kind: incentivedomain.RuleKindPerDeal,
		ValueCents: 500, Label: "Bonus", IsActive: true, CreatedAt: f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&rule).Error)

	appt := f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true, SelfClose: true})
	require.Len(t, f.incentives(t), 1)

	require.NoError(t, f.svc.Delete(ctx, appt.ID.String()))
	_, err := f.svc.GetByID(ctx, appt.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, f.incentives(t), 1)
	assert.ErrorIs(t, f.svc.Delete(ctx, appt.ID.String()), domain.ErrNotFound)
}

func TestList_FiltersByOwnerAndStage(t *testing.T) {
	f := setupAppointmentService(t)
	ctx := context.Background()

	other := agentdomain.Agent{ID: f.node.Generate(), Name: "Carol", Email: "carol@example.com", Role: agentdomain.RoleAgent}
	require.NoError(t, f.db.Create(&other).Error)

	f.create(t, domain.CreateAppointmentRequest{})
	f.create(t, domain.CreateAppointmentRequest{LiveTransfer: true})
	f.create(t, domain.CreateAppointmentRequest{OwnerAgentID: other.ID.String()})

	mine, err := f.svc.List(ctx, domain.ListAppointmentRequest{OwnerAgentID: f.owner.ID.String()})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.svc.List(ctx, domain.ListAppointmentRequest{Stage: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.List(ctx, domain.ListAppointmentRequest{Stage: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/earnings/aggregate"
	"github.com/smallbiznis/salesdesk/internal/earnings/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	AgentRepo       agentdomain.Repository
	AppointmentRepo appointmentdomain.Repository
	IncentiveRepo   incentivedomain.Repository
	CycleRepo       paycycledomain.Repository
	SettingsSvc     settingsdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	agentRepo       agentdomain.Repository
	appointmentRepo appointmentdomain.Repository
	incentiveRepo   incentivedomain.Repository
	cycleRepo       paycycledomain.Repository
	settingsSvc     settingsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("earnings.service"),
		clock:           p.Clock,
		agentRepo:       p.AgentRepo,
		appointmentRepo: p.AppointmentRepo,
		incentiveRepo:   p.IncentiveRepo,
		cycleRepo:       p.CycleRepo,
		settingsSvc:     p.SettingsSvc,
	}
}

type snapshot struct {
	appointments []appointmentdomain.Appointment
	incentives   []incentivedomain.Incentive
	cycles       []paycycledomain.PayCycle
	settings     settingsdomain.Settings
}

func (s *Service) Earnings(ctx context.Context, value string) (aggregate.Earnings, error) {
	scope, err := agentdomain.ParseScope(value)
	if err != nil {
		return aggregate.Earnings{}, domain.ErrInvalidScope
	}

	var dismissed []snowflake.ID
	if agentID, ok := scope.AgentID(); ok {
		agent, err := s.agentRepo.FindByID(ctx, s.db, agentID)
		if err != nil {
			return aggregate.Earnings{}, err
		}
		if agent == nil {
			return aggregate.Earnings{}, domain.ErrNotFound
		}
		dismissed = agent.DismissedCycleIDs
	}

	snap, err := s.load(ctx)
	if err != nil {
		return aggregate.Earnings{}, err
	}
	return aggregate.BuildEarningWindows(aggregate.Input{
		Appointments:      snap.appointments,
		Incentives:        snap.incentives,
		Cycles:            snap.cycles,
		Scope:             scope,
		ReferralRateCents: snap.settings.ReferralCommissionCents,
		DismissedCycleIDs: dismissed,
		Now:               s.clock.Now().UTC(),
	}), nil
}

func (s *Service) TeamCycleTotal(ctx context.Context) (domain.TeamTotal, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return domain.TeamTotal{}, err
	}
	now := s.clock.Now().UTC()
	out := domain.TeamTotal{
		TotalCents: aggregate.TeamCycleTotal(snap.appointments, snap.incentives, snap.cycles, snap.settings.ReferralCommissionCents, now),
	}
	if id := paycycledomain.ActiveCycleID(snap.cycles, now); id != nil {
		out.CycleID = id.String()
	}
	return out, nil
}

func (s *Service) Performance(ctx context.Context, value string) (aggregate.Performance, error) {
	scope, err := agentdomain.ParseScope(value)
	if err != nil {
		return aggregate.Performance{}, domain.ErrInvalidScope
	}
	agentID, ok := scope.AgentID()
	if !ok {
		return aggregate.Performance{}, domain.ErrInvalidScope
	}
	items, err := s.appointmentRepo.List(ctx, s.db, appointmentdomain.ListFilter{OwnerAgentID: &agentID})
	if err != nil {
		return aggregate.Performance{}, err
	}
	return aggregate.PerformanceStats(values(items), agentID), nil
}

func (s *Service) Dashboard(ctx context.Context, value string) (aggregate.Dashboard, error) {
	scope, err := agentdomain.ParseScope(value)
	if err != nil {
		return aggregate.Dashboard{}, domain.ErrInvalidScope
	}
	items, err := s.appointmentRepo.List(ctx, s.db, appointmentdomain.ListFilter{})
	if err != nil {
		return aggregate.Dashboard{}, err
	}
	return aggregate.DashboardStats(values(items), scope, s.clock.Now().UTC()), nil
}

// load fetches everything the aggregator reads. Nothing is cached between calls.
func (s *Service) load(ctx context.Context) (snapshot, error) {
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return snapshot{}, err
	}
	appointments, err := s.appointmentRepo.List(ctx, s.db, appointmentdomain.ListFilter{})
	if err != nil {
		return snapshot{}, err
	}
	incentives, err := s.incentiveRepo.List(ctx, s.db)
	if err != nil {
		return snapshot{}, err
	}
	cycles, err := s.cycleRepo.List(ctx, s.db)
	if err != nil {
		return snapshot{}, err
	}

	snap := snapshot{
		appointments: values(appointments),
		incentives:   make([]incentivedomain.Incentive, 0, len(incentives)),
		cycles:       make([]paycycledomain.PayCycle, 0, len(cycles)),
		settings:     settings,
	}
	for _, item := range incentives {
		if item != nil {
			snap.incentives = append(snap.incentives, *item)
		}
	}
	for _, item := range cycles {
		if item != nil {
			snap.cycles = append(snap.cycles, *item)
		}
	}
	return snap, nil
}

func values(items []*appointmentdomain.Appointment) []appointmentdomain.Appointment {
	out := make([]appointmentdomain.Appointment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

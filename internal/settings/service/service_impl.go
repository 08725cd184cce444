package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/commission"
	"github.com/smallbiznis/salesdesk/internal/config"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/smallbiznis/salesdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Repo            domain.Repository
	Defaults        *config.CommissionConfigHolder
	AgentRepo       agentdomain.Repository
	AppointmentRepo appointmentdomain.Repository
	CycleRepo       paycycledomain.Repository
	AuditSvc        auditdomain.Service `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	repo            domain.Repository
	defaults        *config.CommissionConfigHolder
	agentRepo       agentdomain.Repository
	appointmentRepo appointmentdomain.Repository
	cycleRepo       paycycledomain.Repository
	auditSvc        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("settings.service"),
		clock:           p.Clock,
		repo:            p.Repo,
		defaults:        p.Defaults,
		agentRepo:       p.AgentRepo,
		appointmentRepo: p.AppointmentRepo,
		cycleRepo:       p.CycleRepo,
		auditSvc:        p.AuditSvc,
	}
}

// Get returns the saved rates, falling back to the configured defaults.
func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	return s.load(ctx, s.db)
}

func (s *Service) load(ctx context.Context, db *gorm.DB) (domain.Settings, error) {
	record, err := s.repo.Get(ctx, db)
	if err != nil {
		return domain.Settings{}, err
	}
	if record != nil {
		return record.Settings(), nil
	}
	return s.fallback(), nil
}

func (s *Service) fallback() domain.Settings {
	cfg := config.DefaultCommissionConfig()
	if s.defaults != nil {
		cfg = s.defaults.Get()
	}
	return domain.Settings{
		StandardCommissionCents: cfg.StandardCents,
		SelfCommissionCents:     cfg.SelfCents,
		ReferralCommissionCents: cfg.ReferralCents,
	}
}

// Update saves new rates. With SyncRetroactive set, onboarded deals scheduled in the
// active cycle are re-snapshotted under the new rates, keeping their rule bonuses.
// Manually entered amounts are never touched.
func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.UpdateSettingsResponse, error) {
	if err := req.Settings.Validate(); err != nil {
		return domain.UpdateSettingsResponse{}, err
	}

	now := s.clock.Now().UTC()
	resp := domain.UpdateSettingsResponse{Settings: req.Settings}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		record := domain.Record{
			ID:                      domain.GlobalID,
			StandardCommissionCents: req.StandardCommissionCents,
			SelfCommissionCents:     req.SelfCommissionCents,
			ReferralCommissionCents: req.ReferralCommissionCents,
			UpdatedAt:               now,
		}
		if err := s.repo.Upsert(ctx, tx, &record); err != nil {
			return err
		}

		if req.SyncRetroactive {
			count, delta, err := s.resync(ctx, tx, req.Settings, now)
			if err != nil {
				return err
			}
			resp.ResyncedCount = count
			resp.ResyncDeltaCents = delta
		}

		if s.auditSvc == nil {
			return nil
		}
		targetID := domain.GlobalID
		return s.auditSvc.AuditLogTx(ctx, tx, "", nil, auditdomain.ActionSettingsUpdated, "settings", &targetID, map[string]any{
			"previous":           previous,
			"current":            req.Settings,
			"sync_retroactive":   req.SyncRetroactive,
			"resynced_count":     resp.ResyncedCount,
			"resync_delta_cents": resp.ResyncDeltaCents,
		})
	})
	if err != nil {
		return domain.UpdateSettingsResponse{}, err
	}

	s.log.Info("commission settings updated",
		zap.Int64("standard_cents", req.StandardCommissionCents),
		zap.Int64("self_cents", req.SelfCommissionCents),
		zap.Int64("referral_cents", req.ReferralCommissionCents),
		zap.Int("resynced", resp.ResyncedCount),
	)
	return resp, nil
}

func (s *Service) resync(ctx context.Context, tx *gorm.DB, settings domain.Settings, now time.Time) (int, int64, error) {
	cycles, err := s.cycleRepo.List(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	values := make([]paycycledomain.PayCycle, 0, len(cycles))
	for _, cycle := range cycles {
		if cycle != nil {
			values = append(values, *cycle)
		}
	}
	active, ok := paycycledomain.ActiveCycle(values, now)
	if !ok {
		return 0, 0, nil
	}

	appointments, err := s.appointmentRepo.List(ctx, tx, appointmentdomain.ListFilter{Stage: appointmentdomain.StageOnboarded})
	if err != nil {
		return 0, 0, err
	}

	owners := map[snowflake.ID]string{}
	var (
		count int
		delta int64
	)
	for _, appt := range appointments {
		if appt == nil || appt.ManualAmount || !active.Contains(appt.ScheduledAt) {
			continue
		}

		ownerName, ok := owners[appt.OwnerAgentID]
		if !ok {
			owner, err := s.agentRepo.FindByID(ctx, tx, appt.OwnerAgentID)
			if err != nil {
				return 0, 0, err
			}
			if owner != nil {
				ownerName = owner.Name
			}
			owners[appt.OwnerAgentID] = ownerName
		}

		next := commission.Resync(*appt, ownerName, settings)
		if next == appt.EarnedAmountCents {
			continue
		}
		delta += next - appt.EarnedAmountCents
		appt.EarnedAmountCents = next
		appt.UpdatedAt = now
		if err := s.appointmentRepo.Save(ctx, tx, appt); err != nil {
			return 0, 0, err
		}
		count++
	}
	return count, delta, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/smallbiznis/salesdesk/internal/referral/domain"
	"github.com/smallbiznis/salesdesk/internal/referral/ledger"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"github.com/smallbiznis/salesdesk/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	AppointmentRepo appointmentdomain.Repository
	IncentiveRepo   incentivedomain.Repository
	CycleRepo       paycycledomain.Repository
	SettingsSvc     settingsdomain.Service
	Commission      *config.CommissionConfigHolder `optional:"true"`
	AuditSvc        auditdomain.Service            `optional:"true"`
	Metrics         *metrics.Metrics               `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	appointmentRepo appointmentdomain.Repository
	incentiveRepo   incentivedomain.Repository
	cycleRepo       paycycledomain.Repository
	settingsSvc     settingsdomain.Service
	commission      *config.CommissionConfigHolder
	auditSvc        auditdomain.Service
	metrics         *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("referral.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		appointmentRepo: p.AppointmentRepo,
		incentiveRepo:   p.IncentiveRepo,
		cycleRepo:       p.CycleRepo,
		settingsSvc:     p.SettingsSvc,
		commission:      p.Commission,
		auditSvc:        p.AuditSvc,
		metrics:         p.Metrics,
	}
}

// Update sets the running referral total of an onboarded appointment.
func (s *Service) Update(ctx context.Context, req domain.UpdateReferralRequest) (domain.UpdateReferralResponse, error) {
	id, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.UpdateReferralResponse{}, err
	}
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.UpdateReferralResponse{}, err
	}

	var (
		update ledger.Update
		delta  int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appt, err := s.appointmentRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if appt == nil {
			return domain.ErrNotFound
		}
		if !appt.IsOnboarded() {
			return domain.ErrNotOnboarded
		}

		now := s.clock.Now().UTC()
		activeCycleID, err := s.activeCycleID(ctx, tx, now)
		if err != nil {
			return err
		}

		update, err = ledger.ApplyReferralUpdate(*appt, req.Count, activeCycleID, settings.ReferralCommissionCents, now, s.genID)
		if err != nil {
			return err
		}
		delta = update.Appointment.ReferralCount - appt.ReferralCount
		if delta == 0 {
			return nil
		}

		if err := s.appointmentRepo.Save(ctx, tx, &update.Appointment); err != nil {
			return err
		}
		if update.Incentive != nil {
			if err := s.incentiveRepo.Insert(ctx, tx, update.Incentive); err != nil {
				return err
			}
		}

		action := auditdomain.ActionReferralAdded
		if delta < 0 {
			action = auditdomain.ActionReferralRemoved
		}
		return s.audit(ctx, tx, action, id, map[string]any{
			"delta":          delta,
			"referral_count": update.Appointment.ReferralCount,
		})
	})
	if err != nil {
		return domain.UpdateReferralResponse{}, err
	}

	if delta != 0 {
		s.metrics.RecordReferralDelta(ctx, direction(delta))
	}
	if update.Incentive != nil {
		s.metrics.RecordIncentive(ctx, "referral", update.Incentive.AmountCents)
	}
	return domain.UpdateReferralResponse{
		Appointment: update.Appointment,
		Incentive:   update.Incentive,
	}, nil
}

// DeleteEntry removes one referral history line and the bonus it paid, if any.
func (s *Service) DeleteEntry(ctx context.Context, req domain.DeleteEntryRequest) (domain.DeleteEntryResponse, error) {
	id, err := parseID(req.AppointmentID)
	if err != nil {
		return domain.DeleteEntryResponse{}, err
	}
	entryID, err := parseID(req.EntryID)
	if err != nil {
		return domain.DeleteEntryResponse{}, err
	}

	var (
		deletion ledger.Deletion
		resp     domain.DeleteEntryResponse
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appt, err := s.appointmentRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if appt == nil {
			return domain.ErrNotFound
		}

		deletion = ledger.DeleteReferralEntry(*appt, entryID, s.clock.Now().UTC())
		resp.Appointment = deletion.Appointment
		if deletion.Removed == nil {
			return nil
		}

		if err := s.appointmentRepo.Save(ctx, tx, &deletion.Appointment); err != nil {
			return err
		}
		if deletion.IncentiveID != nil {
			removed, err := s.incentiveRepo.Delete(ctx, tx, *deletion.IncentiveID)
			if err != nil {
				return err
			}
			if removed {
				resp.RemovedIncentiveID = deletion.IncentiveID.String()
			}
		}
		return s.audit(ctx, tx, auditdomain.ActionReferralRemoved, id, map[string]any{
			"entry_id":       entryID.String(),
			"delta":          -deletion.Removed.CountDelta,
			"referral_count": deletion.Appointment.ReferralCount,
		})
	})
	if err != nil {
		return domain.DeleteEntryResponse{}, err
	}

	if deletion.Removed != nil {
		s.metrics.RecordReferralDelta(ctx, "removed")
	}
	return resp, nil
}

// Import applies an external referral report against all onboarded appointments.
func (s *Service) Import(ctx context.Context, req domain.ImportRequest) (domain.ImportResponse, error) {
	if len(req.Rows) == 0 {
		return domain.ImportResponse{}, domain.ErrEmptyReport
	}
	if limit := s.maxRows(); limit > 0 && len(req.Rows) > limit {
		return domain.ImportResponse{}, domain.ErrReportTooLarge
	}

	ctx, batchID := correlation.EnsureCorrelationID(ctx)
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.ImportResponse{}, err
	}

	var result ledger.ImportResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()
		activeCycleID, err := s.activeCycleID(ctx, tx, now)
		if err != nil {
			return err
		}

		items, err := s.appointmentRepo.List(ctx, tx, appointmentdomain.ListFilter{Stage: appointmentdomain.StageOnboarded})
		if err != nil {
			return err
		}
		appointments := make([]appointmentdomain.Appointment, 0, len(items))
		for _, item := range items {
			if item != nil {
				appointments = append(appointments, *item)
			}
		}

		result, err = ledger.ImportReferralReport(req.Rows, appointments, settings.ReferralCommissionCents, activeCycleID, now, s.genID)
		if err != nil {
			return err
		}

		for i := range result.Appointments {
			if err := s.appointmentRepo.Save(ctx, tx, &result.Appointments[i]); err != nil {
				return err
			}
		}
		if len(result.Incentives) > 0 {
			incentives := make([]*incentivedomain.Incentive, 0, len(result.Incentives))
			for i := range result.Incentives {
				incentives = append(incentives, &result.Incentives[i])
			}
			if err := s.incentiveRepo.Insert(ctx, tx, incentives...); err != nil {
				return err
			}
		}

		if s.auditSvc == nil {
			return nil
		}
		return s.auditSvc.AuditLogTx(ctx, tx, "", nil, auditdomain.ActionReferralImport, "referral_report", &batchID, map[string]any{
			"rows":        len(req.Rows),
			"applied":     result.Applied,
			"skipped":     result.Skipped,
			"unmatched":   result.Unmatched,
			"bonus_cents": result.BonusCents,
		})
	})
	if err != nil {
		return domain.ImportResponse{}, err
	}

	s.metrics.RecordImportRows(ctx, "applied", result.Applied)
	s.metrics.RecordImportRows(ctx, "skipped", result.Skipped)
	s.metrics.RecordImportRows(ctx, "unmatched", result.Unmatched)
	for _, incentive := range result.Incentives {
		s.metrics.RecordReferralDelta(ctx, "added")
		s.metrics.RecordIncentive(ctx, "referral", incentive.AmountCents)
	}

	s.log.Info("referral report imported",
		zap.String("batch_id", batchID),
		zap.Int("rows", len(req.Rows)),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("unmatched", result.Unmatched),
		zap.Int64("bonus_cents", result.BonusCents),
	)

	return domain.ImportResponse{
		BatchID:    batchID,
		Rows:       len(req.Rows),
		Applied:    result.Applied,
		Skipped:    result.Skipped,
		Unmatched:  result.Unmatched,
		Updated:    len(result.Appointments),
		BonusCents: result.BonusCents,
	}, nil
}

func (s *Service) maxRows() int {
	if s.commission == nil {
		return config.DefaultCommissionConfig().Import.MaxRows
	}
	return s.commission.Get().Import.MaxRows
}

func (s *Service) activeCycleID(ctx context.Context, tx *gorm.DB, now time.Time) (*snowflake.ID, error) {
	cycles, err := s.cycleRepo.List(ctx, tx)
	if err != nil {
		return nil, err
	}
	values := make([]paycycledomain.PayCycle, 0, len(cycles))
	for _, cycle := range cycles {
		if cycle != nil {
			values = append(values, *cycle)
		}
	}
	return paycycledomain.ActiveCycleID(values, now), nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, id snowflake.ID, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	targetID := id.String()
	return s.auditSvc.AuditLogTx(ctx, tx, "", nil, action, "appointment", &targetID, metadata)
}

func direction(delta int64) string {
	if delta < 0 {
		return "removed"
	}
	return "added"
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

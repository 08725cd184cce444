package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/smallbiznis/salesdesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/commission"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/smallbiznis/salesdesk/internal/pipeline"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	AgentRepo     agentdomain.Repository
	CycleRepo     paycycledomain.Repository
	RuleRepo      incentivedomain.RuleRepository
	IncentiveRepo incentivedomain.Repository
	SettingsSvc   settingsdomain.Service
	AuditSvc      auditdomain.Service `optional:"true"`
	Metrics       *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	agentRepo     agentdomain.Repository
	cycleRepo     paycycledomain.Repository
	ruleRepo      incentivedomain.RuleRepository
	incentiveRepo incentivedomain.Repository
	settingsSvc   settingsdomain.Service
	auditSvc      auditdomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("appointment.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		agentRepo:     p.AgentRepo,
		cycleRepo:     p.CycleRepo,
		ruleRepo:      p.RuleRepo,
		incentiveRepo: p.IncentiveRepo,
		settingsSvc:   p.SettingsSvc,
		auditSvc:      p.AuditSvc,
		metrics:       p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAppointmentRequest) (domain.Appointment, error) {
	ownerID, err := parseID(req.OwnerAgentID)
	if err != nil {
		return domain.Appointment{}, domain.ErrInvalidOwner
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Appointment{}, domain.ErrInvalidName
	}
	if req.ScheduledAt.IsZero() {
		return domain.Appointment{}, domain.ErrInvalidScheduledAt
	}
	if req.EarnedAmountCents != nil && *req.EarnedAmountCents < 0 {
		return domain.Appointment{}, domain.ErrInvalidAmount
	}

	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}

	var (
		result    pipeline.Result
		ownerName string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := s.agentRepo.FindByID(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return domain.ErrInvalidOwner
		}
		ownerName = owner.Name

		env, err := s.env(ctx, tx, owner.Name, settings, req.LiveTransfer && req.SelfClose)
		if err != nil {
			return err
		}

		draft := domain.Appointment{
			ID:           s.genID.Generate(),
			OwnerAgentID: ownerID,
			Name:         name,
			Phone:        strings.TrimSpace(req.Phone),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Notes:        strings.TrimSpace(req.Notes),
			CloserName:   strings.TrimSpace(req.CloserName),
			ScheduledAt:  req.ScheduledAt.UTC(),
		}
		result = pipeline.Create(draft, pipeline.Options{
			LiveTransfer:      req.LiveTransfer,
			SelfClose:         req.SelfClose,
			EarnedAmountCents: req.EarnedAmountCents,
		}, env)

		if err := s.repo.Insert(ctx, tx, &result.Appointment); err != nil {
			return err
		}
		if err := s.persistEffects(ctx, tx, result); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionAppointmentAdded, result.Appointment.ID, map[string]any{
			"stage": string(result.Appointment.Stage),
			"type":  string(result.Appointment.Type),
			"phone": result.Appointment.Phone,
			"email": result.Appointment.Email,
		})
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.record(ctx, result, ownerName)
	return result.Appointment, nil
}

// MoveStage runs a stage transition and persists the appointment together with any
// fired incentives and rule counter increments.
func (s *Service) MoveStage(ctx context.Context, req domain.MoveStageRequest) (domain.Appointment, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Appointment{}, err
	}
	stage := domain.Stage(strings.ToUpper(strings.TrimSpace(string(req.Stage))))
	if !stage.Valid() {
		return domain.Appointment{}, domain.ErrInvalidStage
	}
	if req.EarnedAmountCents != nil && *req.EarnedAmountCents < 0 {
		return domain.Appointment{}, domain.ErrInvalidAmount
	}

	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}

	var (
		result    pipeline.Result
		ownerName string
		noop      bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appt, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if appt == nil {
			return domain.ErrNotFound
		}

		owner, err := s.agentRepo.FindByID(ctx, tx, appt.OwnerAgentID)
		if err != nil {
			return err
		}
		if owner != nil {
			ownerName = owner.Name
		}

		entering := stage == domain.StageOnboarded && appt.Stage != domain.StageOnboarded
		env, err := s.env(ctx, tx, ownerName, settings, entering)
		if err != nil {
			return err
		}

		result, err = pipeline.Transition(*appt, pipeline.Request{
			To:                stage,
			ManualSelfOnboard: req.ManualSelfOnboard,
			CloserName:        req.CloserName,
			ScheduledAt:       req.ScheduledAt,
			EarnedAmountCents: req.EarnedAmountCents,
		}, env)
		if err != nil {
			return err
		}
		if result.From == domain.StageOnboarded && stage == domain.StageOnboarded {
			noop = true
			return nil
		}

		if err := s.repo.Save(ctx, tx, &result.Appointment); err != nil {
			return err
		}
		if err := s.persistEffects(ctx, tx, result); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionStageMoved, result.Appointment.ID, map[string]any{
			"from":                string(result.From),
			"to":                  string(result.Appointment.Stage),
			"earned_amount_cents": result.Appointment.EarnedAmountCents,
			"fired_incentives":    len(result.Fired),
		})
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidTransition) {
			s.log.Debug("stage transition rejected",
				zap.String("appointment_id", id.String()),
				zap.String("to", string(stage)),
			)
		}
		return domain.Appointment{}, err
	}

	if noop {
		return result.Appointment, nil
	}
	s.metrics.RecordStageTransition(ctx, string(result.From), string(result.Appointment.Stage))
	s.record(ctx, result, ownerName)
	return result.Appointment, nil
}

// Delete removes the appointment only. Incentives it produced stay in the ledger.
func (s *Service) Delete(ctx context.Context, value string) error {
	id, err := parseID(value)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionAppointmentGone, id, map[string]any{
			"stage": string(existing.Stage),
		})
	})
}

func (s *Service) GetByID(ctx context.Context, value string) (domain.Appointment, error) {
	id, err := parseID(value)
	if err != nil {
		return domain.Appointment{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if item == nil {
		return domain.Appointment{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAppointmentRequest) ([]domain.Appointment, error) {
	filter := domain.ListFilter{}
	if strings.TrimSpace(req.OwnerAgentID) != "" {
		ownerID, err := parseID(req.OwnerAgentID)
		if err != nil {
			return nil, domain.ErrInvalidOwner
		}
		filter.OwnerAgentID = &ownerID
	}
	if stage := strings.TrimSpace(req.Stage); stage != "" {
		filter.Stage = domain.Stage(strings.ToUpper(stage))
		if !filter.Stage.Valid() {
			return nil, domain.ErrInvalidStage
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	return Values(items), nil
}

// env loads rules and the active cycle only when the move can onboard the deal.
func (s *Service) env(ctx context.Context, tx *gorm.DB, ownerName string, settings settingsdomain.Settings, onboarding bool) (pipeline.Env, error) {
	now := s.clock.Now().UTC()
	env := pipeline.Env{
		OwnerAgentName: ownerName,
		Settings:       settings,
		Now:            now,
		GenID:          s.genID,
	}
	if !onboarding {
		return env, nil
	}

	rules, err := s.ruleRepo.ListActive(ctx, tx)
	if err != nil {
		return pipeline.Env{}, err
	}
	for _, rule := range rules {
		if rule != nil {
			env.Rules = append(env.Rules, *rule)
		}
	}

	cycles, err := s.cycleRepo.List(ctx, tx)
	if err != nil {
		return pipeline.Env{}, err
	}
	values := make([]paycycledomain.PayCycle, 0, len(cycles))
	for _, cycle := range cycles {
		if cycle != nil {
			values = append(values, *cycle)
		}
	}
	env.ActiveCycleID = paycycledomain.ActiveCycleID(values, now)
	return env, nil
}

func (s *Service) persistEffects(ctx context.Context, tx *gorm.DB, result pipeline.Result) error {
	if len(result.Fired) > 0 {
		fired := make([]*incentivedomain.Incentive, 0, len(result.Fired))
		for i := range result.Fired {
			fired = append(fired, &result.Fired[i])
		}
		if err := s.incentiveRepo.Insert(ctx, tx, fired...); err != nil {
			return err
		}
	}
	for _, update := range result.RuleUpdates {
		if err := s.ruleRepo.SetCurrentCount(ctx, tx, update.RuleID, update.NewCurrentCount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, result pipeline.Result, ownerName string) {
	appt := result.Appointment
	if appt.Stage != domain.StageOnboarded || result.From == domain.StageOnboarded {
		return
	}
	closeType := "assisted"
	if appt.ManualAmount {
		closeType = "manual"
	} else if commission.IsSelfClose(appt.CloserName, ownerName) {
		closeType = "self"
	}
	s.metrics.RecordCommissionSnapshot(ctx, closeType, appt.EarnedAmountCents)
	for _, fired := range result.Fired {
		s.metrics.RecordIncentive(ctx, "rule", fired.AmountCents)
	}
	s.log.Info("appointment onboarded",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("owner_agent_id", appt.OwnerAgentID.String()),
		zap.Int64("base_cents", result.BaseCents),
		zap.Int64("earned_amount_cents", appt.EarnedAmountCents),
		zap.Int("fired_incentives", len(result.Fired)),
	)
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, id snowflake.ID, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	targetID := id.String()
	return s.auditSvc.AuditLogTx(ctx, tx, "", nil, action, "appointment", &targetID, metadata)
}

// Values flattens repository results, dropping nil entries.
func Values(items []*domain.Appointment) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"github.com/smallbiznis/salesdesk/internal/incentive/rules"
	"github.com/smallbiznis/salesdesk/internal/observability/metrics"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	RuleRepo  domain.RuleRepository
	CycleRepo paycycledomain.Repository
	AuditSvc  auditdomain.Service `optional:"true"`
	Metrics   *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	ruleRepo  domain.RuleRepository
	cycleRepo paycycledomain.Repository
	auditSvc  auditdomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("incentive.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		ruleRepo:  p.RuleRepo,
		cycleRepo: p.CycleRepo,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (domain.IncentiveRule, error) {
	target, err := agentdomain.ParseScope(req.Target)
	if err != nil {
		return domain.IncentiveRule{}, domain.ErrInvalidTarget
	}

	rule, err := rules.NewRule(s.genID.Generate(), rules.Definition{
		Target:      target,
		Kind:        domain.RuleKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		ValueCents:  req.ValueCents,
		Label:       req.Label,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TargetCount: req.TargetCount,
	}, s.clock.Now().UTC())
	if err != nil {
		return domain.IncentiveRule{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ruleRepo.Insert(ctx, tx, &rule); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionRuleCreated, "incentive_rule", rule.ID, map[string]any{
			"target":      string(rule.Target),
			"kind":        string(rule.Kind),
			"value_cents": rule.ValueCents,
			"label":       rule.Label,
		})
	})
	if err != nil {
		return domain.IncentiveRule{}, err
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.IncentiveRule, error) {
	items, err := s.ruleRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return RuleValues(items), nil
}

func (s *Service) SetRuleActive(ctx context.Context, value string, active bool) (domain.IncentiveRule, error) {
	id, err := parseID(value)
	if err != nil {
		return domain.IncentiveRule{}, err
	}

	var rule domain.IncentiveRule
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.ruleRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrRuleNotFound
		}
		rule = *existing
		if rule.IsActive == active {
			return nil
		}
		rule.IsActive = active
		if err := s.ruleRepo.SetActive(ctx, tx, id, active); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionRuleToggled, "incentive_rule", id, map[string]any{
			"is_active": active,
		})
	})
	if err != nil {
		return domain.IncentiveRule{}, err
	}
	return rule, nil
}

// DeleteRule removes the rule. Incentives it already paid stay in the ledger.
func (s *Service) DeleteRule(ctx context.Context, value string) error {
	id, err := parseID(value)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.ruleRepo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrRuleNotFound
		}
		if err := s.ruleRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionRuleDeleted, "incentive_rule", id, map[string]any{
			"label": existing.Label,
		})
	})
}

// Grant books a one-off bonus. Without an explicit cycle it lands in the active one, if any.
func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (domain.Incentive, error) {
	userID, err := agentdomain.ParseScope(req.UserID)
	if err != nil {
		return domain.Incentive{}, domain.ErrInvalidTarget
	}
	if req.AmountCents <= 0 {
		return domain.Incentive{}, domain.ErrInvalidValue
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return domain.Incentive{}, domain.ErrInvalidLabel
	}

	now := s.clock.Now().UTC()
	incentive := domain.Incentive{
		ID:          s.genID.Generate(),
		UserID:      userID,
		AmountCents: req.AmountCents,
		Label:       label,
		CreatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cycleID, err := s.resolveCycle(ctx, tx, req.CycleID, now)
		if err != nil {
			return err
		}
		incentive.AppliedCycleID = cycleID
		if err := s.repo.Insert(ctx, tx, &incentive); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionIncentiveGranted, "incentive", incentive.ID, map[string]any{
			"user_id":      string(incentive.UserID),
			"amount_cents": incentive.AmountCents,
			"label":        incentive.Label,
		})
	})
	if err != nil {
		return domain.Incentive{}, err
	}

	s.metrics.RecordIncentive(ctx, "grant", incentive.AmountCents)
	s.log.Info("incentive granted",
		zap.String("incentive_id", incentive.ID.String()),
		zap.String("user_id", string(incentive.UserID)),
		zap.Int64("amount_cents", incentive.AmountCents),
	)
	return incentive, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Incentive, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return Values(items), nil
}

func (s *Service) Delete(ctx context.Context, value string) error {
	id, err := parseID(value)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotFound
		}
		return s.audit(ctx, tx, auditdomain.ActionIncentiveRemoved, "incentive", id, nil)
	})
}

func (s *Service) resolveCycle(ctx context.Context, tx *gorm.DB, value string, now time.Time) (*snowflake.ID, error) {
	if strings.TrimSpace(value) != "" {
		id, err := parseID(value)
		if err != nil {
			return nil, err
		}
		cycle, err := s.cycleRepo.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if cycle == nil {
			return nil, paycycledomain.ErrNotFound
		}
		return &id, nil
	}

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

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, targetType string, id snowflake.ID, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	targetID := id.String()
	return s.auditSvc.AuditLogTx(ctx, tx, "", nil, action, targetType, &targetID, metadata)
}

// Values flattens repository results, dropping nil entries.
func Values(items []*domain.Incentive) []domain.Incentive {
	out := make([]domain.Incentive, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func RuleValues(items []*domain.IncentiveRule) []domain.IncentiveRule {
	out := make([]domain.IncentiveRule, 0, len(items))
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

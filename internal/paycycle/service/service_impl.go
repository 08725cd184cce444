package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("paycycle.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePayCycleRequest) (domain.PayCycle, error) {
	start, end, err := validatePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return domain.PayCycle{}, err
	}

	now := s.clock.Now().UTC()
	cycle := domain.PayCycle{
		ID:        s.genID.Generate(),
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &cycle); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionCycleCreated, cycle)
	})
	if err != nil {
		return domain.PayCycle{}, err
	}
	return cycle, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePayCycleRequest) (domain.PayCycle, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.PayCycle{}, err
	}
	start, end, err := validatePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return domain.PayCycle{}, err
	}

	var cycle domain.PayCycle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		cycle = *existing
		cycle.StartDate = start
		cycle.EndDate = end
		cycle.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, &cycle); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionCycleUpdated, cycle)
	})
	if err != nil {
		return domain.PayCycle{}, err
	}
	return cycle, nil
}

// Delete removes the cycle. Incentives booked against it keep their cycle id.
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
		return s.audit(ctx, tx, auditdomain.ActionCycleDeleted, *existing)
	})
}

func (s *Service) List(ctx context.Context) ([]domain.PayCycleView, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	views := make([]domain.PayCycleView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, domain.PayCycleView{
			PayCycle:            *item,
			Status:              item.StatusAt(now),
			ProgressBasisPoints: item.ProgressBasisPoints(now),
		})
	}
	return views, nil
}

// Active returns the cycle containing the current instant, or nil.
func (s *Service) Active(ctx context.Context) (*domain.PayCycle, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	cycle, ok := domain.ActiveCycle(Values(items), s.clock.Now().UTC())
	if !ok {
		return nil, nil
	}
	return &cycle, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, cycle domain.PayCycle) error {
	if s.auditSvc == nil {
		return nil
	}
	targetID := cycle.ID.String()
	return s.auditSvc.AuditLogTx(ctx, tx, "", nil, action, "pay_cycle", &targetID, map[string]any{
		"start_date": cycle.StartDate.Format(time.RFC3339),
		"end_date":   cycle.EndDate.Format(time.RFC3339),
	})
}

// Values flattens repository results, dropping nil entries.
func Values(items []*domain.PayCycle) []domain.PayCycle {
	out := make([]domain.PayCycle, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func validatePeriod(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	return start, end, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

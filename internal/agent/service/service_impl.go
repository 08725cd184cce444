package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("agent.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAgentRequest) (domain.Agent, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Agent{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Agent{}, domain.ErrInvalidEmail
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	switch role {
	case "":
		role = domain.RoleAgent
	case domain.RoleAgent, domain.RoleAdmin:
	default:
		return domain.Agent{}, domain.ErrInvalidRole
	}

	now := s.clock.Now().UTC()
	agent := domain.Agent{
		ID:                s.genID.Generate(),
		Name:              name,
		Email:             email,
		Role:              role,
		DismissedCycleIDs: datatypes.JSONSlice[snowflake.ID]{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &agent); err != nil {
		return domain.Agent{}, err
	}
	return agent, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Agent, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	agents := make([]domain.Agent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		agents = append(agents, *item)
	}
	return agents, nil
}

func (s *Service) GetByID(ctx context.Context, value string) (domain.Agent, error) {
	id, err := parseID(value)
	if err != nil {
		return domain.Agent{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agent{}, err
	}
	if item == nil {
		return domain.Agent{}, domain.ErrNotFound
	}
	return *item, nil
}

// DismissCycle hides a closed cycle from the agent's earnings history.
func (s *Service) DismissCycle(ctx context.Context, agentID string, cycleID string) (domain.Agent, error) {
	agent, err := s.GetByID(ctx, agentID)
	if err != nil {
		return domain.Agent{}, err
	}
	id, err := parseID(cycleID)
	if err != nil {
		return domain.Agent{}, err
	}
	if agent.HasDismissed(id) {
		return agent, nil
	}

	agent.DismissedCycleIDs = append(agent.DismissedCycleIDs, id)
	agent.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateDismissedCycles(ctx, s.db, &agent); err != nil {
		return domain.Agent{}, err
	}
	s.log.Debug("cycle dismissed", zap.String("agent_id", agent.ID.String()), zap.String("cycle_id", id.String()))
	return agent, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

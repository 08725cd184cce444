package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/agent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Create(agent).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agent, error) {
	var agent domain.Agent
	err := db.WithContext(ctx).Where("id = ?", id).First(&agent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	if err := db.WithContext(ctx).Order("created_at asc, id asc").Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repo) UpdateDismissedCycles(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).
		Model(&domain.Agent{}).
		Where("id = ?", agent.ID).
		Updates(map[string]any{
			"dismissed_cycle_ids": agent.DismissedCycleIDs,
			"updated_at":          agent.UpdatedAt,
		}).Error
}

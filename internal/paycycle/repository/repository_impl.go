package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cycle *domain.PayCycle) error {
	return db.WithContext(ctx).Create(cycle).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, cycle *domain.PayCycle) error {
	return db.WithContext(ctx).
		Model(&domain.PayCycle{}).
		Where("id = ?", cycle.ID).
		Updates(map[string]any{
			"start_date": cycle.StartDate,
			"end_date":   cycle.EndDate,
			"updated_at": cycle.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.PayCycle{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PayCycle, error) {
	var cycle domain.PayCycle
	err := db.WithContext(ctx).Where("id = ?", id).First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// List returns every cycle, newest start first.
func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.PayCycle, error) {
	var cycles []*domain.PayCycle
	if err := db.WithContext(ctx).Order("start_date desc, id desc").Find(&cycles).Error; err != nil {
		return nil, err
	}
	return cycles, nil
}

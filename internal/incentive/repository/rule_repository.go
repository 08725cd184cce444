package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"gorm.io/gorm"
)

type ruleRepo struct{}

func ProvideRules() domain.RuleRepository {
	return &ruleRepo{}
}

func (r *ruleRepo) Insert(ctx context.Context, db *gorm.DB, rule *domain.IncentiveRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *ruleRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.IncentiveRule, error) {
	var rule domain.IncentiveRule
	err := db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepo) List(ctx context.Context, db *gorm.DB) ([]*domain.IncentiveRule, error) {
	var rules []*domain.IncentiveRule
	if err := db.WithContext(ctx).Order("created_at desc, id desc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActive returns active rules in creation order so evaluation is stable.
func (r *ruleRepo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.IncentiveRule, error) {
	var rules []*domain.IncentiveRule
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc, id asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error {
	return db.WithContext(ctx).
		Model(&domain.IncentiveRule{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *ruleRepo) SetCurrentCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int64) error {
	return db.WithContext(ctx).
		Model(&domain.IncentiveRule{}).
		Where("id = ?", id).
		Update("current_count", count).Error
}

func (r *ruleRepo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.IncentiveRule{}).Error
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/incentive/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, incentives ...*domain.Incentive) error {
	if len(incentives) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(incentives).Error
}

// Delete reports whether a row was removed. Missing rows are not an error.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Incentive{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Incentive, error) {
	var incentives []*domain.Incentive
	if err := db.WithContext(ctx).Order("created_at desc, id desc").Find(&incentives).Error; err != nil {
		return nil, err
	}
	return incentives, nil
}

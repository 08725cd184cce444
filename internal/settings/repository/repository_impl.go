package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/salesdesk/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Get returns the single settings row, or nil before the first update.
func (r *repo) Get(ctx context.Context, db *gorm.DB) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Where("id = ?", domain.GlobalID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	record.ID = domain.GlobalID
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commission_standard",
			"commission_self",
			"commission_referral",
			"updated_at",
		}),
	}).Create(record).Error
}

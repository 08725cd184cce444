package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Get(ctx context.Context, db *gorm.DB) (*Record, error)
	Upsert(ctx context.Context, db *gorm.DB, record *Record) error
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RuleRepository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *IncentiveRule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*IncentiveRule, error)
	List(ctx context.Context, db *gorm.DB) ([]*IncentiveRule, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*IncentiveRule, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
	SetCurrentCount(ctx context.Context, db *gorm.DB, id snowflake.ID, count int64) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, incentives ...*Incentive) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB) ([]*Incentive, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cycle *PayCycle) error
	Update(ctx context.Context, db *gorm.DB, cycle *PayCycle) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PayCycle, error)
	List(ctx context.Context, db *gorm.DB) ([]*PayCycle, error)
}

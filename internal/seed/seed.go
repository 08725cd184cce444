package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureAdmin makes sure an admin agent with the given email exists.
// An existing agent with that email is promoted; otherwise one is created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return agentdomain.ErrInvalidEmail
	}

	node, err := snowflake.NewNode(1023)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agent agentdomain.Agent
		err := tx.WithContext(ctx).Where("email = ?", email).First(&agent).Error
		now := time.Now().UTC()
		if err == nil {
			if agent.Role == agentdomain.RoleAdmin {
				return nil
			}
			return tx.WithContext(ctx).
				Model(&agentdomain.Agent{}).
				Where("id = ?", agent.ID).
				Updates(map[string]any{
					"role":       agentdomain.RoleAdmin,
					"updated_at": now,
				}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		agent = agentdomain.Agent{
			ID:                node.Generate(),
			Name:              displayName(email),
			Email:             email,
			Role:              agentdomain.RoleAdmin,
			DismissedCycleIDs: datatypes.JSONSlice[snowflake.ID]{},
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return tx.WithContext(ctx).Create(&agent).Error
	})
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.TrimSpace(local)
	if local == "" {
		return "Admin"
	}
	return local
}

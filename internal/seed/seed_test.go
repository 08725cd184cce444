package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsureAdmin_CreatesThenPromotes(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:seed_%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&agentdomain.Agent{}))
	ctx := context.Background()

	require.NoError(t, EnsureAdmin(ctx, db, " Boss@Example.com "))
	var admin agentdomain.Agent
	require.NoError(t, db.Where("email = ?", "boss@example.com").First(&admin).Error)
	assert.Equal(t, agentdomain.RoleAdmin, admin.Role)
	assert.Equal(t, "boss", admin.Name)

	// idempotent
	require.NoError(t, EnsureAdmin(ctx, db, "boss@example.com"))
	var count int64
	require.NoError(t, db.Model(&agentdomain.Agent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	agent := agentdomain.Agent{ID: 77, Name: "Carol", Email: "carol@example.com", Role: agentdomain.RoleAgent}
	require.NoError(t, db.Create(&agent).Error)
	require.NoError(t, EnsureAdmin(ctx, db, "carol@example.com"))
	require.NoError(t, db.First(&agent, "id = ?", agent.ID).Error)
	assert.Equal(t, agentdomain.RoleAdmin, agent.Role)

	assert.ErrorIs(t, EnsureAdmin(ctx, db, "nobody"), agentdomain.ErrInvalidEmail)
}

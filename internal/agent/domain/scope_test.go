package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	scope, err := ParseScope(" TEAM ")
	require.NoError(t, err)
	assert.True(t, scope.IsTeam())

	scope, err = ParseScope("1234")
	require.NoError(t, err)
	id, ok := scope.AgentID()
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(1234), id)

	for _, raw := range []string{"", "  ", "everyone", "0"} {
		_, err := ParseScope(raw)
		assert.ErrorIs(t, err, ErrInvalidScope, raw)
	}
}

func TestScopeIncludes(t *testing.T) {
	alice := snowflake.ID(10)
	bob := snowflake.ID(11)

	assert.True(t, TeamScope.Includes(alice))
	assert.True(t, TeamScope.Includes(bob))
	assert.True(t, AgentScope(alice).Includes(alice))
	assert.False(t, AgentScope(alice).Includes(bob))
	assert.False(t, Scope("garbage").Includes(alice))
}

func TestHasDismissed(t *testing.T) {
	agent := Agent{DismissedCycleIDs: []snowflake.ID{3, 7}}
	assert.True(t, agent.HasDismissed(7))
	assert.False(t, agent.HasDismissed(8))
}

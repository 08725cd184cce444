package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Scope addresses either a single agent or the whole team.
// Rule targets, incentive owners and earnings views all use it.
type Scope string

// TeamScope is the sentinel matching every agent.
const TeamScope Scope = "team"

// AgentScope returns the scope of one agent.
func AgentScope(id snowflake.ID) Scope {
	return Scope(id.String())
}

func (s Scope) IsTeam() bool {
	return s == TeamScope
}

// AgentID returns the agent id addressed by the scope. It reports false for the team scope
// and for values that are not snowflake ids.
func (s Scope) AgentID() (snowflake.ID, bool) {
	if s.IsTeam() {
		return 0, false
	}
	id, err := snowflake.ParseString(strings.TrimSpace(string(s)))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Includes reports whether an agent falls under this scope.
func (s Scope) Includes(agentID snowflake.ID) bool {
	if s.IsTeam() {
		return true
	}
	id, ok := s.AgentID()
	return ok && id == agentID
}

// ParseScope normalises user input into a Scope.
func ParseScope(raw string) (Scope, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", ErrInvalidScope
	}
	if value == string(TeamScope) {
		return TeamScope, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return "", ErrInvalidScope
	}
	return AgentScope(id), nil
}

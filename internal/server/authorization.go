package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	"github.com/smallbiznis/salesdesk/internal/authorization"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	agent, ok := agentFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actorOf(agent), strings.TrimSpace(object), strings.TrimSpace(action))
}

func actorOf(agent agentdomain.Agent) authorization.Actor {
	return authorization.Actor{
		AgentID: agent.ID.String(),
		Role:    string(agent.Role),
	}
}

// requireOwner lets admins through and otherwise demands the caller owns the record.
func requireOwner(c *gin.Context, ownerID snowflake.ID) error {
	agent, ok := agentFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if agent.IsAdmin() || agent.ID == ownerID {
		return nil
	}
	return ErrForbidden
}

// resolveScope maps the scope query value to a scope the caller may read.
// Agents default to their own book; other agents and the team need admin rights.
func (s *Server) resolveScope(c *gin.Context, raw string) (agentdomain.Scope, error) {
	agent, ok := agentFromContext(c)
	if !ok {
		return "", ErrUnauthorized
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "me" {
		return agentdomain.AgentScope(agent.ID), nil
	}

	scope, err := agentdomain.ParseScope(raw)
	if err != nil {
		return "", err
	}
	if id, ok := scope.AgentID(); ok && id == agent.ID {
		return scope, nil
	}
	if err := s.authorizeWithContext(c, authorization.ObjectEarnings, authorization.ActionEarningsViewTeam); err != nil {
		return "", err
	}
	return scope, nil
}

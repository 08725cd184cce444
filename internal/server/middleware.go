package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	obscontext "github.com/smallbiznis/salesdesk/internal/observability/context"
)

const (
	HeaderAgent         = "X-Agent-Id"
	contextAgentKey     = "agent"
	contextAgentIDKey   = "agent_id"
	contextAgentRoleKey = "agent_role"
)

// AgentRequired resolves the X-Agent-Id header to a registered agent.
func (s *Server) AgentRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := strings.TrimSpace(c.GetHeader(HeaderAgent))
		if agentID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		agent, err := s.agentSvc.GetByID(c.Request.Context(), agentID)
		if err != nil {
			if errors.Is(err, agentdomain.ErrNotFound) || errors.Is(err, agentdomain.ErrInvalidID) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(agent.Role), agent.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextAgentKey, agent)
		c.Set(contextAgentIDKey, agent.ID.String())
		c.Set(contextAgentRoleKey, string(agent.Role))
		c.Next()
	}
}

func agentFromContext(c *gin.Context) (agentdomain.Agent, bool) {
	if c == nil {
		return agentdomain.Agent{}, false
	}
	value, ok := c.Get(contextAgentKey)
	if !ok {
		return agentdomain.Agent{}, false
	}
	agent, ok := value.(agentdomain.Agent)
	if !ok || agent.ID == 0 {
		return agentdomain.Agent{}, false
	}
	return agent, true
}

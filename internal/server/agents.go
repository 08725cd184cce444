package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
)

type createAgentRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type dismissCycleRequest struct {
	CycleID string `json:"cycle_id"`
}

func (s *Server) Me(c *gin.Context) {
	agent, ok := agentFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agent})
}

func (s *Server) ListAgents(c *gin.Context) {
	resp, err := s.agentSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agentSvc.Create(c.Request.Context(), agentdomain.CreateAgentRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Role:  strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, auditdomain.ActionAgentCreated, "agent", &targetID, map[string]any{
			"agent_id": resp.ID.String(),
			"name":     resp.Name,
			"email":    resp.Email,
			"role":     string(resp.Role),
		})
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// DismissCycle hides a closed cycle from the caller's earnings history.
func (s *Server) DismissCycle(c *gin.Context) {
	agent, ok := agentFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req dismissCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CycleID) == "" {
		AbortWithError(c, newValidationError("cycle_id", "required", "cycle_id is required"))
		return
	}

	resp, err := s.agentSvc.DismissCycle(c.Request.Context(), agent.ID.String(), req.CycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

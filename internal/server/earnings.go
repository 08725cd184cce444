package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type scopeQuery struct {
	Scope string `form:"scope"`
}

// GetEarnings returns the current window, closed history and lifetime total.
// Scope defaults to the caller; "team" or another agent requires admin rights.
func (s *Server) GetEarnings(c *gin.Context) {
	var query scopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	scope, err := s.resolveScope(c, query.Scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.earningsSvc.Earnings(c.Request.Context(), string(scope))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTeamCycleTotal(c *gin.Context) {
	resp, err := s.earningsSvc.TeamCycleTotal(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPerformance(c *gin.Context) {
	var query struct {
		AgentID string `form:"agent_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	scope, err := s.resolveScope(c, query.AgentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.earningsSvc.Performance(c.Request.Context(), string(scope))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDashboard(c *gin.Context) {
	var query scopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	scope, err := s.resolveScope(c, query.Scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.earningsSvc.Dashboard(c.Request.Context(), string(scope))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

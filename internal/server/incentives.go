package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
)

type createIncentiveRuleRequest struct {
	Target      string `json:"target"`
	Kind        string `json:"kind"`
	ValueCents  int64  `json:"value_cents"`
	Label       string `json:"label"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	TargetCount *int64 `json:"target_count"`
}

type grantIncentiveRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Label       string `json:"label"`
	CycleID     string `json:"cycle_id"`
}

func (s *Server) ListIncentiveRules(c *gin.Context) {
	var query struct {
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.incentiveSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if active != nil {
		filtered := make([]incentivedomain.IncentiveRule, 0, len(resp))
		for _, rule := range resp {
			if rule.IsActive == *active {
				filtered = append(filtered, rule)
			}
		}
		resp = filtered
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateIncentiveRule(c *gin.Context) {
	var req createIncentiveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startTime, err := parseOptionalTime(req.StartTime, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_time", "invalid_start_time", "invalid start_time"))
		return
	}
	endTime, err := parseOptionalTime(req.EndTime, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_time", "invalid_end_time", "invalid end_time"))
		return
	}

	resp, err := s.incentiveSvc.CreateRule(c.Request.Context(), incentivedomain.CreateRuleRequest{
		Target:      strings.TrimSpace(req.Target),
		Kind:        strings.TrimSpace(req.Kind),
		ValueCents:  req.ValueCents,
		Label:       strings.TrimSpace(req.Label),
		StartTime:   startTime,
		EndTime:     endTime,
		TargetCount: req.TargetCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ActivateIncentiveRule(c *gin.Context) {
	s.setIncentiveRuleActive(c, true)
}

func (s *Server) DeactivateIncentiveRule(c *gin.Context) {
	s.setIncentiveRuleActive(c, false)
}

func (s *Server) setIncentiveRuleActive(c *gin.Context, active bool) {
	resp, err := s.incentiveSvc.SetRuleActive(c.Request.Context(), strings.TrimSpace(c.Param("id")), active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteIncentiveRule(c *gin.Context) {
	if err := s.incentiveSvc.DeleteRule(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListIncentives returns the ledger. Agents only see their own and team-wide payouts.
func (s *Server) ListIncentives(c *gin.Context) {
	agent, ok := agentFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.incentiveSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !agent.IsAdmin() {
		own := agentdomain.AgentScope(agent.ID)
		filtered := make([]incentivedomain.Incentive, 0, len(resp))
		for _, item := range resp {
			if item.UserID.IsTeam() || item.UserID == own {
				filtered = append(filtered, item)
			}
		}
		resp = filtered
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GrantIncentive(c *gin.Context) {
	var req grantIncentiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.incentiveSvc.Grant(c.Request.Context(), incentivedomain.GrantRequest{
		UserID:      strings.TrimSpace(req.UserID),
		AmountCents: req.AmountCents,
		Label:       strings.TrimSpace(req.Label),
		CycleID:     strings.TrimSpace(req.CycleID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) DeleteIncentive(c *gin.Context) {
	if err := s.incentiveSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

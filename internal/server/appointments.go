package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
)

type createAppointmentRequest struct {
	OwnerAgentID      string    `json:"owner_agent_id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	Notes             string    `json:"notes"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	CloserName        string    `json:"closer_name"`
	LiveTransfer      bool      `json:"live_transfer"`
	SelfClose         bool      `json:"self_close"`
	EarnedAmountCents *int64    `json:"earned_amount_cents"`
}

type moveStageRequest struct {
	Stage             string     `json:"stage"`
	ManualSelfOnboard bool       `json:"manual_self_onboard"`
	CloserName        string     `json:"closer_name"`
	ScheduledAt       *time.Time `json:"scheduled_at"`
	EarnedAmountCents *int64     `json:"earned_amount_cents"`
}

func (s *Server) CreateAppointment(c *gin.Context) {
	agent, ok := agentFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(req.OwnerAgentID)
	if ownerID == "" {
		ownerID = agent.ID.String()
	}
	if ownerID != agent.ID.String() && !agent.IsAdmin() {
		AbortWithError(c, ErrForbidden)
		return
	}
	// historical amounts are an admin correction
	if req.EarnedAmountCents != nil && !agent.IsAdmin() {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.appointmentSvc.Create(c.Request.Context(), appointmentdomain.CreateAppointmentRequest{
		OwnerAgentID:      ownerID,
		Name:              strings.TrimSpace(req.Name),
		Phone:             strings.TrimSpace(req.Phone),
		Email:             strings.TrimSpace(req.Email),
		Notes:             strings.TrimSpace(req.Notes),
		ScheduledAt:       req.ScheduledAt,
		CloserName:        strings.TrimSpace(req.CloserName),
		LiveTransfer:      req.LiveTransfer,
		SelfClose:         req.SelfClose,
		EarnedAmountCents: req.EarnedAmountCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("stage", string(resp.Stage))
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAppointments(c *gin.Context) {
	agent, ok := agentFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query struct {
		OwnerAgentID string `form:"owner_agent_id"`
		Stage        string `form:"stage"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(query.OwnerAgentID)
	if !agent.IsAdmin() {
		if ownerID != "" && ownerID != agent.ID.String() {
			AbortWithError(c, ErrForbidden)
			return
		}
		ownerID = agent.ID.String()
	}

	resp, err := s.appointmentSvc.List(c.Request.Context(), appointmentdomain.ListAppointmentRequest{
		OwnerAgentID: ownerID,
		Stage:        strings.TrimSpace(query.Stage),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAppointmentByID(c *gin.Context) {
	resp, ok := s.loadOwnedAppointment(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MoveAppointmentStage(c *gin.Context) {
	current, ok := s.loadOwnedAppointment(c)
	if !ok {
		return
	}

	var req moveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	agent, _ := agentFromContext(c)
	if req.EarnedAmountCents != nil && !agent.IsAdmin() {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.appointmentSvc.MoveStage(c.Request.Context(), appointmentdomain.MoveStageRequest{
		ID:                current.ID.String(),
		Stage:             appointmentdomain.Stage(strings.TrimSpace(req.Stage)),
		ManualSelfOnboard: req.ManualSelfOnboard,
		CloserName:        strings.TrimSpace(req.CloserName),
		ScheduledAt:       req.ScheduledAt,
		EarnedAmountCents: req.EarnedAmountCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("stage", string(resp.Stage))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteAppointment(c *gin.Context) {
	current, ok := s.loadOwnedAppointment(c)
	if !ok {
		return
	}

	if err := s.appointmentSvc.Delete(c.Request.Context(), current.ID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// loadOwnedAppointment fetches the :id appointment and checks the caller may touch it.
// It aborts the request and reports false on any failure.
func (s *Server) loadOwnedAppointment(c *gin.Context) (appointmentdomain.Appointment, bool) {
	id := strings.TrimSpace(c.Param("id"))
	appt, err := s.appointmentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return appointmentdomain.Appointment{}, false
	}
	if err := requireOwner(c, appt.OwnerAgentID); err != nil {
		AbortWithError(c, err)
		return appointmentdomain.Appointment{}, false
	}
	return appt, true
}

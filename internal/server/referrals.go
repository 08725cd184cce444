package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	referraldomain "github.com/smallbiznis/salesdesk/internal/referral/domain"
	"github.com/smallbiznis/salesdesk/internal/referral/ledger"
)

type updateReferralRequest struct {
	Count *int64 `json:"count"`
}

type importReferralsRequest struct {
	Rows []ledger.ReportRow `json:"rows"`
}

// UpdateReferralCount sets the running referral total of an onboarded appointment.
func (s *Server) UpdateReferralCount(c *gin.Context) {
	current, ok := s.loadOwnedAppointment(c)
	if !ok {
		return
	}

	var req updateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Count == nil {
		AbortWithError(c, newValidationError("count", "required", "count is required"))
		return
	}

	resp, err := s.referralSvc.Update(c.Request.Context(), referraldomain.UpdateReferralRequest{
		AppointmentID: current.ID.String(),
		Count:         *req.Count,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteReferralEntry(c *gin.Context) {
	current, ok := s.loadOwnedAppointment(c)
	if !ok {
		return
	}

	resp, err := s.referralSvc.DeleteEntry(c.Request.Context(), referraldomain.DeleteEntryRequest{
		AppointmentID: current.ID.String(),
		EntryID:       strings.TrimSpace(c.Param("entryId")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ImportReferrals applies a referral report to the matching onboarded appointments.
func (s *Server) ImportReferrals(c *gin.Context) {
	var req importReferralsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referralSvc.Import(c.Request.Context(), referraldomain.ImportRequest{
		Rows: req.Rows,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

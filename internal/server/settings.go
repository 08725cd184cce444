package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
)

type updateSettingsRequest struct {
	StandardCommissionCents *int64 `json:"standard_commission_cents"`
	SelfCommissionCents     *int64 `json:"self_commission_cents"`
	ReferralCommissionCents *int64 `json:"referral_commission_cents"`
	SyncRetroactive         bool   `json:"sync_retroactive"`
}

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateSettings replaces the rates. Omitted rates keep their current value.
func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	current, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if req.StandardCommissionCents != nil {
		current.StandardCommissionCents = *req.StandardCommissionCents
	}
	if req.SelfCommissionCents != nil {
		current.SelfCommissionCents = *req.SelfCommissionCents
	}
	if req.ReferralCommissionCents != nil {
		current.ReferralCommissionCents = *req.ReferralCommissionCents
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateSettingsRequest{
		Settings:        current,
		SyncRetroactive: req.SyncRetroactive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

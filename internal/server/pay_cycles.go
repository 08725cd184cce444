package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
)

type payCycleRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) ListPayCycles(c *gin.Context) {
	resp, err := s.payCycleSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActivePayCycle(c *gin.Context) {
	resp, err := s.payCycleSvc.Active(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePayCycle(c *gin.Context) {
	var req payCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, end, err := parseCyclePeriod(req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payCycleSvc.Create(c.Request.Context(), paycycledomain.CreatePayCycleRequest{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdatePayCycle(c *gin.Context) {
	var req payCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, end, err := parseCyclePeriod(req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payCycleSvc.Update(c.Request.Context(), paycycledomain.UpdatePayCycleRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayCycle(c *gin.Context) {
	if err := s.payCycleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesdesk/internal/observability/logger"
	"go.uber.org/zap"
)

// ImportRateLimit throttles report uploads per admin and rejects an upload
// while another one is still being applied.
func (s *Server) ImportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.importLimiter.Enabled() {
			c.Next()
			return
		}

		agent, ok := agentFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ctx := c.Request.Context()

		res, err := s.importLimiter.AllowAgent(ctx, agent.ID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("referral import rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		token, locked, err := s.importLimiter.TryLock(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("referral import lock failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !locked {
			AbortWithError(c, ErrImportInProgress)
			return
		}
		defer func() {
			if err := s.importLimiter.Release(ctx, token); err != nil {
				logger.FromContext(ctx).Warn("referral import lock release failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

package ratelimit

import (
	"fmt"
	"math"

	"q-pipecat/internal/apierrors"
	"q-pipecat/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware that limits requests per client IP
func (s *Service) Middleware(responder *apierrors.Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := observability.GetRealClientIP(c)
		ctx := observability.WithFields(c.Request.Context(),
			observability.Field{Key: "client_ip", Value: clientIP},
			observability.Field{Key: "rate_limit", Value: s.limit},
		)

		result, err := s.Check(ctx, clientIP)
		if err != nil {
			responder.RespondWithError(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(result.RetryAfter.Seconds()))))
			s.logger.Warn(ctx, "rate limit exceeded")
			responder.RespondWithError(c, apierrors.TooManyRequests("rate limit exceeded"))
			return
		}

		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/ratelimit"
	"github.com/classmate-app/homework-api/pkg/response"
)

// RateLimit throttles one named action per actor using the sliding
// window limiter. Unauthenticated callers share the guest bucket keyed
// by client IP.
func RateLimit(limiter *ratelimit.Limiter, action string, maxPerWindow int) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ratelimit.GuestActor + ":" + c.ClientIP()
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok {
				actor = claims.UserID
			}
		}

		if !limiter.Allow(actor, action, maxPerWindow) {
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, "too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

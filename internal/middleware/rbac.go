package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/elimu-sms/admissions-api/internal/models"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
	"github.com/elimu-sms/admissions-api/pkg/response"
)

// RequireCapability gates a route on one capability. The engine repeats the
// check on every operation; this middleware only gives a cheaper early
// rejection at the HTTP edge.
func RequireCapability(cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !claims.Actor().HasCapability(cap) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden,
				fmt.Sprintf("actor lacks capability %s", cap)))
			c.Abort()
			return
		}
		c.Next()
	}
}

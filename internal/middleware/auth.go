package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/soramame/workgroup-api/internal/apperrors"
	"github.com/soramame/workgroup-api/internal/authz"
	"github.com/soramame/workgroup-api/internal/constants"
)

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)

		if userID == nil {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		if su := session.Get(constants.ContextKeySuperuser); su != nil {
			c.Set(constants.ContextKeySuperuser, su)
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetActor builds the authz principal from context. The superuser flag is
// stamped into the session at login.
func GetActor(c *gin.Context) (authz.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return authz.Actor{}, false
	}

	actor := authz.Actor{UserID: userID}
	if su, exists := c.Get(constants.ContextKeySuperuser); exists {
		if flag, ok := su.(bool); ok {
			actor.Superuser = flag
		}
	}
	return actor, true
}

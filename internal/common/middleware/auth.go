package middleware

import (
	"github.com/gin-gonic/gin"

	"giveaway-miniapp/internal/common/errors"
)

// RequireAdmin пропускает только пользователей из ADMIN_IDS.
func RequireAdmin(isAdmin func(userID string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentIdentity(c)
		if !ok {
			AbortWithError(c, errors.NewUnauthorizedError("Telegram Init Data required"))
			return
		}
		if !isAdmin(user.ID) {
			AbortWithError(c, errors.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}

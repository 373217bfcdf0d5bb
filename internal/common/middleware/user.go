package middleware

import (
	"github.com/gin-gonic/gin"

	"giveaway-miniapp/internal/common/errors"
	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/participation/session"
)

const ContextKeySession = "session"

// LoadSession поднимает (или создаёт) сессию пользователя вместе с профилем.
func LoadSession(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentIdentity(c)
		if !ok {
			AbortWithError(c, errors.NewUnauthorizedError("Telegram Init Data required"))
			return
		}

		sess := registry.Acquire(c.Request.Context(), user)
		if !sess.Persisted() {
			logger.Debug().Str("user_id", user.ID).Msg("Session profile is not persisted yet")
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}

func CurrentSession(c *gin.Context) (*session.UserSession, bool) {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.UserSession)
	return sess, ok
}

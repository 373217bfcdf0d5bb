package middleware

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	"giveaway-miniapp/internal/common/errors"
	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/identity"
)

const (
	HeaderInitData     = "X-Telegram-Init-Data"
	QueryInitData      = "init_data"
	ContextKeyIdentity = "identity"
)

// TelegramInitData проверяет init data мини-аппа и кладёт identity.Identity в контекст.
// allowFallback включается только в режиме отладки без токена бота.
func TelegramInitData(botToken string, ttl time.Duration, allowFallback bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderInitData)
		if raw == "" {
			// EventSource не умеет слать заголовки
			raw = c.Query(QueryInitData)
		}

		provider, err := identity.NewInitDataProvider(raw, botToken, ttl, allowFallback)
		if err != nil {
			reason := "invalid init data"
			if stderrors.Is(err, identity.ErrMissingInitData) {
				reason = "Telegram Init Data required"
			}
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Init data rejected")
			AbortWithError(c, errors.NewUnauthorizedError(reason))
			return
		}
		if provider.IsFallback() {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("Using fallback identity")
		}

		user := provider.CurrentUser()
		c.Set(ContextKeyIdentity, user)
		c.Set(ContextKeyUserID, user.ID)
		c.Next()
	}
}

// CurrentIdentity достаёт личность, положенную TelegramInitData.
func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

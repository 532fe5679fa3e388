package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobtracker/internal/auth"
	"jobtracker/internal/database"
	"jobtracker/internal/errcode"
)

// UserIDKey 是认证后 OwnerID 在 gin 上下文中的键。
const UserIDKey = "userID"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateTokenOfType(rawToken, auth.TokenTypeAccess)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// ActiveUserChecker 判断令牌中的账号是否仍然存在且未被禁用。
type ActiveUserChecker interface {
	Active(ctx context.Context, id uint) (*database.User, error)
}

// ActiveUserMiddleware 拒绝已删除或已禁用账号持有的未过期令牌。需放在 AuthMiddleware 之后。
func ActiveUserMiddleware(users ActiveUserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint(UserIDKey)
		if userID == 0 {
			abortUnauthorized(c)
			return
		}

		if _, err := users.Active(c.Request.Context(), userID); err != nil {
			if !errors.Is(err, errcode.ErrNotFound) {
				LoggerFromContext(c).Error("load active user", slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"jobtracker/internal/api/middleware"
	"jobtracker/internal/auth"
	"jobtracker/internal/errcode"
	"jobtracker/internal/metrics"
	"jobtracker/internal/tracker"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// authStore 是认证流程用到的 Redis 命令子集：登录限流、失败锁定与刷新令牌黑名单。
type authStore interface {
	redisRateCounter
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LoginLimits 控制登录限流与锁定。
type LoginLimits struct {
	RatePerHour   int
	LockThreshold int
	LockTTL       time.Duration
}

// AuthHandler 处理注册、登录、刷新、退出以及当前账号的读写与删除。
type AuthHandler struct {
	users        *tracker.UserService
	authService  *auth.AuthService
	redis        authStore
	logger       *slog.Logger
	limits       LoginLimits
	cookieDomain string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(users *tracker.UserService, authService *auth.AuthService, redisClient authStore, logger *slog.Logger, limits LoginLimits, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		users:        users,
		authService:  authService,
		redis:        redisClient,
		logger:       logger,
		limits:       limits,
		cookieDomain: cookieDomain,
	}
}

// Register 创建新用户账号，响应中不包含密码。
func (h *AuthHandler) Register(c *gin.Context) {
	var in tracker.UserInput
	if !bindJSON(c, &in) {
		return
	}

	view, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	h.loggerFromContext(c).Info("user registered", slog.String("public_id", view.PublicID.String()))
	metrics.RecordMutation("user", "create")
	c.JSON(http.StatusCreated, view)
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Token 校验邮箱与密码并返回 Token。
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if !bindJSON(c, &req) {
		return
	}
	errs := &errcode.ValidationError{}
	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", "This field is required.")
	} else if !tracker.ValidEmail(tracker.NormalizeEmail(req.Email)) {
		errs.Add("email", "Enter a valid email address.")
	}
	if req.Password == "" {
		errs.Add("password", "This field is required.")
	}
	if err := errs.Err(); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	account := strings.ToLower(tracker.NormalizeEmail(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", account))

	// 速率限制：每 IP+邮箱 每小时若干次
	count, err := incrWithTTL(ctx, h.redis, loginRateKey(c.ClientIP(), account, time.Now()), time.Hour)
	if err != nil {
		logger.Warn("login rate counter unavailable", slog.Any("error", err))
		count = 0
	}
	if h.limits.RatePerHour > 0 && count > int64(h.limits.RatePerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	// 锁定检查
	if ttl, _ := h.redis.TTL(ctx, loginLockKey(account)).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if _, ok := errcode.AsValidation(err); ok {
			logger.Info("login failed")
			_ = h.incrementLoginFail(ctx, account)
		}
		respondError(c, err)
		return
	}

	// 登录成功：清理失败计数
	_ = h.redis.Del(ctx, loginFailKey(account)).Err()

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.replyWithTokenPair(c, tokenPair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, key, ok := h.refreshClaims(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if _, err := h.users.Active(ctx, claims.UserID); err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			logger.Info("refresh user not found or disabled", slog.Uint64("user_id", uint64(claims.UserID)))
			Unauthorized(c)
			return
		}
		respondError(c, err)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 旋转旧刷新令牌，防止重复使用。
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair)
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, key, ok := h.refreshClaims(c)
	if !ok {
		return
	}

	if err := h.revokeRefreshToken(c.Request.Context(), key, claims.ExpiresAt); err != nil {
		h.loggerFromContext(c).Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 清除 Cookie。
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusNoContent)
}

// Me 返回当前账号。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateMe 修改邮箱、姓名或密码。
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var in tracker.UserInput
	if !bindJSON(c, &in) {
		return
	}
	view, err := h.users.Update(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecordMutation("user", "update")
	c.JSON(http.StatusOK, view)
}

// DeleteMe 删除当前账号及其全部数据。
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.users.Delete(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	h.loggerFromContext(c).Info("user deleted", slog.Uint64("user_id", uint64(userID)))
	metrics.RecordMutation("user", "delete")
	c.Status(http.StatusNoContent)
}

// refreshClaims 读取并校验刷新令牌，失败时已写出响应。
func (h *AuthHandler) refreshClaims(c *gin.Context) (*auth.TokenClaims, string, bool) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return nil, "", false
	}

	logger := h.loggerFromContext(c)
	claims, err := h.authService.ValidateTokenOfType(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		logger.Info("refresh token rejected", slog.Any("error", err))
		Unauthorized(c)
		return nil, "", false
	}
	return claims, refreshTokenBlacklistKeyPrefix + claims.ID, true
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func (h *AuthHandler) incrementLoginFail(ctx context.Context, account string) error {
	count, err := incrWithTTL(ctx, h.redis, loginFailKey(account), h.limits.LockTTL)
	if err != nil {
		return err
	}
	if h.limits.LockThreshold > 0 && count >= int64(h.limits.LockThreshold) {
		_ = h.redis.Set(ctx, loginLockKey(account), "1", h.limits.LockTTL).Err()
	}
	return nil
}

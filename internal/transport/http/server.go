// transport/http содержит HTTP-эндпоинты ядра аутентификации.
// Здесь выполняется только маппинг данных и ошибок доменного слоя
// (service) в HTTP. Вся логика — в пакете service.
//
// Маппинг ошибок:
//   - ErrTooManyAttempts/ErrAccountLocked -> 429;
//   - ErrInvalidCredentials/ErrAccountDisabled/ErrInvalidToken/
//     ErrTokenExpired/ErrTokenRevoked/ErrReplayDetected -> 401;
//   - иные ошибки -> 500 c единым безопасным сообщением.
//
// Безопасность:
//   - Тело 401/429 не различает внутренние причины отказа; детали
//     остаются в серверных логах.
package http

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/booking-platform/auth-core/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.Service
}

// NewAuthHandler создаёт HTTP-обработчики поверх сервисного слоя.
func NewAuthHandler(svc *service.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register регистрирует маршруты ядра на роутере.
func (h *AuthHandler) Register(r gin.IRouter) {
	v1 := r.Group("/v1/auth")
	v1.POST("/login", h.Login)
	v1.POST("/refresh", h.Refresh)
	v1.POST("/logout", h.Logout)
	v1.POST("/logout_all", h.LogoutAll)
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type authResponse struct {
	UserID          string `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"`
}

// Login аутентифицирует пользователя и возвращает пару токенов.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, uid, err := h.svc.Login(c.Request.Context(), req.Login, req.Password, c.ClientIP())
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		UserID:          uid.String(),
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
	})
}

// Refresh ротирует refresh-токен и возвращает новую пару.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, uid, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP())
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		UserID:          uid.String(),
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
	})
}

// Logout отзывает предъявленный refresh-токен.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.svc.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// LogoutAll отзывает все refresh-токены владельца access-токена
// из заголовка Authorization («выйти на всех устройствах»).
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	accessToken, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	uid, _, err := h.svc.ValidateToken(c.Request.Context(), accessToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	if err := h.svc.RevokeAll(c.Request.Context(), uid); err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// bearerToken извлекает токен из заголовка "Bearer <token>".
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}

	return header[len(prefix):], true
}

// writeAuthError переводит доменные ошибки в HTTP-статусы, не раскрывая
// внутренних деталей.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTooManyAttempts), errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrReplayDetected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/transport/http/middleware"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/usecase"
)

// AuthHandler exposes login, rotation, and logout endpoints.
type AuthHandler struct {
	auth     *usecase.AuthService
	sessions *usecase.SessionManager
}

// NewAuthHandler builds a new auth handler instance.
func NewAuthHandler(auth *usecase.AuthService, sessions *usecase.SessionManager) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

// RegisterRoutes attaches the auth endpoints to the router group.
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", authMiddleware, h.Logout)
}

// Login runs the full authentication pipeline and issues the first
// credential pair. Lockouts surface a retry-after duration; every other
// failure collapses into one uniform message.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identifier and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Signals: domain.DeviceSignals{
			UserAgent:           c.Request.UserAgent(),
			Accept:              c.GetHeader("Accept"),
			AcceptLanguage:      c.GetHeader("Accept-Language"),
			AcceptEncoding:      c.GetHeader("Accept-Encoding"),
			Screen:              req.Screen,
			Viewport:            req.Viewport,
			Timezone:            req.Timezone,
			Language:            req.Language,
			Platform:            req.Platform,
			HardwareConcurrency: req.HardwareConcurrency,
			DeviceMemory:        req.DeviceMemory,
			IP:                  c.ClientIP(),
		},
	})
	if err != nil {
		var lockout *usecase.LockoutError
		if errors.As(err, &lockout) {
			resp := NewErrorResponse(c, "too many failed attempts, try again later")
			resp.RetryAfter = int(lockout.Remaining.Seconds())
			c.Header("Retry-After", strconv.Itoa(resp.RetryAfter))
			c.JSON(http.StatusTooManyRequests, resp)
			return
		}
		if usecase.IsAuthFailure(err) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	resp := LoginResponse{
		SessionID:    result.Tokens.SessionID,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(result.Tokens.ExpiresIn.Seconds()),
		NewDevice:    result.NewDevice,
	}
	if result.Assessment != nil {
		resp.RiskLevel = string(result.Assessment.Level)
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh credential. A reuse-detected credential kills
// the session, so the client must run a fresh login.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	pair, err := h.sessions.Rotate(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrCredentialReuseDetected, Status: http.StatusUnauthorized, Message: "credential reuse detected, please log in again"},
			{Err: usecase.ErrSessionNotFound, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrSessionInactive, Status: http.StatusUnauthorized, Message: "session is no longer active"},
			{Err: usecase.ErrCredentialExpired, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrCredentialInvalid, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		SessionID:    pair.SessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// Logout invalidates the calling session. Logging out an already-inactive
// session still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.GetAuthenticatedSessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.sessions.Invalidate(c.Request.Context(), sessionID, "user_logout"); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusUnauthorized, Message: "session not found"},
		}, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

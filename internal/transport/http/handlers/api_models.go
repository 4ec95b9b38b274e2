package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/domain"
	appLogger "github.com/Othmneto/islamic-portal-app-sub000/internal/infra/logger"
)

// ErrorResponse represents a generic error payload with the request id for
// correlation.
type ErrorResponse struct {
	Error      string `json:"error"`
	RequestID  string `json:"request_id,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// NewErrorResponse creates an error response carrying the request id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	requestID, _ := c.Request.Context().Value(appLogger.RequestIDKey{}).(string)
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestID,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`

	// Optional client-collected fingerprint signals.
	Screen              string `json:"screen"`
	Viewport            string `json:"viewport"`
	Timezone            string `json:"timezone"`
	Language            string `json:"language"`
	Platform            string `json:"platform"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	DeviceMemory        int    `json:"device_memory"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	NewDevice    bool   `json:"new_device,omitempty"`
	RiskLevel    string `json:"risk_level,omitempty"`
}

// RefreshRequest represents the payload to rotate a refresh credential.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries the rotated credential pair.
type RefreshResponse struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SessionView is the redacted per-session listing entry.
type SessionView struct {
	ID           string    `json:"id"`
	IP           string    `json:"ip"`
	Browser      string    `json:"browser,omitempty"`
	OS           string    `json:"os,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	RememberMe   bool      `json:"remember_me"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}

// SessionStatsResponse partitions a user's active sessions by remember-me.
type SessionStatsResponse struct {
	Total       int           `json:"total"`
	Persistent  int           `json:"persistent"`
	SessionOnly int           `json:"session_only"`
	Sessions    []SessionView `json:"sessions"`
}

// HealthResponse reports liveness state.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

func newSessionView(summary domain.SessionSummary, currentSessionID string) SessionView {
	return SessionView{
		ID:           summary.ID,
		IP:           appLogger.MaskIP(summary.IP),
		Browser:      summary.Device.Browser,
		OS:           summary.Device.OS,
		Platform:     summary.Device.Platform,
		RememberMe:   summary.RememberMe,
		CreatedAt:    summary.CreatedAt,
		LastActivity: summary.LastActivity,
		ExpiresAt:    summary.ExpiresAt,
		Current:      summary.ID == currentSessionID,
	}
}

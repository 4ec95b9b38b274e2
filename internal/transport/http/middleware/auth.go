package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/usecase"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	UserIDKey    = "user_id"
	SessionIDKey = "session_id"
)

// RenewedTokenHeader carries a silently renewed access credential back to
// the client when the presented one has passed its renewal threshold.
const RenewedTokenHeader = "X-Renewed-Token"

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// RequireAuth validates the Authorization bearer credential and its backing
// session, then runs the sliding renewal check. A renewed credential is
// returned in the RenewedTokenHeader; the original stays valid until expiry.
func RequireAuth(sessions *usecase.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, _, err := sessions.ValidateAccess(c.Request.Context(), token)
		if err != nil {
			if usecase.IsAuthFailure(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "authentication failed"))
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		// Renewal is best effort; the presented credential stays valid.
		if renewed, err := sessions.SlidingRenewal(c.Request.Context(), claims); err == nil && renewed != "" {
			c.Writer.Header().Set(RenewedTokenHeader, renewed)
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(SessionIDKey, claims.SessionID)

		c.Next()
	}
}

// GetAuthenticatedUserID retrieves the user ID from context.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	if id, ok := c.Get(UserIDKey); ok {
		if s, ok := id.(string); ok {
			return s, true
		}
	}
	return "", false
}

// GetAuthenticatedSessionID retrieves the session ID from context.
func GetAuthenticatedSessionID(c *gin.Context) (string, bool) {
	if id, ok := c.Get(SessionIDKey); ok {
		if s, ok := id.(string); ok {
			return s, true
		}
	}
	return "", false
}

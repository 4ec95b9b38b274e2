package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/transport/http/middleware"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/usecase"
)

// SessionHandler exposes the calling user's session listing and stats.
type SessionHandler struct {
	sessions *usecase.SessionManager
}

// NewSessionHandler builds a new session handler instance.
func NewSessionHandler(sessions *usecase.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes attaches the session endpoints to the router group.
func (h *SessionHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/stats", h.Stats)
	group.DELETE("/:id", h.Revoke)
}

// List returns the caller's active sessions, redacted, with the current
// session marked.
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	currentSessionID, _ := middleware.GetAuthenticatedSessionID(c)

	stats, err := h.sessions.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	views := make([]SessionView, 0, len(stats.Sessions))
	for _, summary := range stats.Sessions {
		views = append(views, newSessionView(summary, currentSessionID))
	}
	c.JSON(http.StatusOK, views)
}

// Stats returns active-session counts partitioned by remember-me.
func (h *SessionHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	currentSessionID, _ := middleware.GetAuthenticatedSessionID(c)

	stats, err := h.sessions.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load session stats"))
		return
	}

	resp := SessionStatsResponse{
		Total:       stats.Total,
		Persistent:  stats.Persistent,
		SessionOnly: stats.SessionOnly,
		Sessions:    make([]SessionView, 0, len(stats.Sessions)),
	}
	for _, summary := range stats.Sessions {
		resp.Sessions = append(resp.Sessions, newSessionView(summary, currentSessionID))
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke invalidates one of the caller's sessions by id. Only sessions owned
// by the caller can be revoked.
func (h *SessionHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := c.Param("id")

	stats, err := h.sessions.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
		return
	}
	owned := false
	for _, summary := range stats.Sessions {
		if summary.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "session not found"))
		return
	}

	if err := h.sessions.Invalidate(c.Request.Context(), sessionID, "user_revoked"); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}

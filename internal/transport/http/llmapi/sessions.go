package llmapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListSessions returns every session.
// GET /llm_api/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSessionMessages returns a session's full history, oldest first.
// GET /llm_api/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	messages, err := h.service.ListMessages(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// Package llmapi provides the memory proxy's HTTP handlers.
package llmapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/service"
)

const healthTimeout = 2 * time.Second

// SweepReporter reports the retention sweeper's state for health checks.
type SweepReporter interface {
	Status() domain.SweepStatus
}

// Handler handles memory proxy HTTP requests.
type Handler struct {
	service *service.Service
	sweeper SweepReporter
	logger  *slog.Logger
}

// NewHandler creates a new handler. sweeper may be nil.
func NewHandler(service *service.Service, sweeper SweepReporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		sweeper: sweeper,
		logger:  logger,
	}
}

// RegisterRoutes registers the chat and history routes on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/chat/completions", h.ChatCompletions)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:session_id/messages", h.GetSessionMessages)
	g.GET("/models", h.ListModels)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	resp := map[string]interface{}{
		"status":  "healthy",
		"version": "0.1.0",
		"store":   "ok",
	}
	status := http.StatusOK
	if err := h.service.Ping(ctx); err != nil {
		resp["status"] = "unhealthy"
		resp["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.sweeper != nil {
		resp["retention"] = h.sweeper.Status()
	}
	return c.JSON(status, resp)
}

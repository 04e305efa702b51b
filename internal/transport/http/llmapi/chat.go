package llmapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// ChatCompletions handles a conversational turn.
// POST /llm_api/chat/completions
func (h *Handler) ChatCompletions(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, llm.ErrorResponse{
			Error: &llm.APIError{
				Message: "invalid request body",
				Type:    "invalid_request_error",
			},
		})
	}

	// Validate required fields
	if req.Model == "" {
		return c.JSON(http.StatusBadRequest, llm.ErrorResponse{
			Error: &llm.APIError{
				Message: "model is required",
				Type:    "invalid_request_error",
				Param:   "model",
			},
		})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, llm.ErrorResponse{
			Error: &llm.APIError{
				Message: "messages is required",
				Type:    "invalid_request_error",
				Param:   "messages",
			},
		})
	}

	result, err := h.service.Chat(ctx, &req)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ListModels handles the models list request.
// GET /llm_api/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, llm.ModelsResponse{
		Object: "list",
		Data:   models,
	})
}

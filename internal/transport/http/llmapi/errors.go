package llmapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/service"
)

// StatusClientClosedRequest is returned when the client stops waiting before the turn starts.
const StatusClientClosedRequest = 499

// errorResponse maps service errors onto status codes and the OpenAI-style error body.
func (h *Handler) errorResponse(c echo.Context, err error) error {
	status, apiErr := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", service.RequestID(c.Request().Context()),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return c.JSON(status, llm.ErrorResponse{Error: apiErr})
}

func classify(err error) (int, *llm.APIError) {
	var rejected *domain.UpstreamRejectedError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, &llm.APIError{Message: err.Error(), Type: "invalid_request_error"}
	case errors.Is(err, domain.ErrRequestBlocked):
		return http.StatusForbidden, &llm.APIError{Message: err.Error(), Type: "policy_violation"}
	case errors.Is(err, domain.ErrRequestCanceled):
		return StatusClientClosedRequest, &llm.APIError{Message: err.Error(), Type: "request_canceled"}
	case errors.Is(err, domain.ErrSessionNotFoundOrEmpty):
		return http.StatusNotFound, &llm.APIError{Message: "Session not found or empty", Type: "not_found_error"}
	case errors.As(err, &rejected):
		status := rejected.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		return status, &llm.APIError{Message: "inference backend error: " + rejected.Body, Type: "upstream_error"}
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, &llm.APIError{Message: err.Error(), Type: "upstream_error"}
	case errors.Is(err, domain.ErrMisconfiguredEndpoint):
		return http.StatusInternalServerError, &llm.APIError{Message: domain.ErrMisconfiguredEndpoint.Error(), Type: "server_error"}
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusInternalServerError, &llm.APIError{Message: domain.ErrStorageUnavailable.Error(), Type: "server_error"}
	default:
		return http.StatusInternalServerError, &llm.APIError{Message: "internal error", Type: "server_error"}
	}
}

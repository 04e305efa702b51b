package llm

import (
	"log/slog"
	"strings"
	"time"
)

// ModeMock selects the mock gateway.
const ModeMock = "MOCK"

// NewGateway creates a gateway for the given mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewGateway(mode, baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) Gateway {
	if strings.EqualFold(mode, ModeMock) {
		logger.Info("inference mode MOCK, using mock gateway")
		return NewMockClient()
	}

	if baseURL == "" {
		logger.Warn("no inference backend configured; chat requests will fail after recording the user turn")
	}
	return NewClient(baseURL, apiKey, timeout)
}

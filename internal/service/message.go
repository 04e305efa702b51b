package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/memproxy/internal/adapter/llm"
	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// ListSessions returns every session, oldest first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list sessions: %w", domain.ErrStorageUnavailable, err)
	}
	return sessions, nil
}

// ListMessages returns a session's full history, oldest first. A session with no
// messages is reported the same as an unknown one.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	messages, err := s.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get messages: %w", domain.ErrStorageUnavailable, err)
	}
	if len(messages) == 0 {
		return nil, domain.ErrSessionNotFoundOrEmpty
	}
	return messages, nil
}

// ListModels passes the backend's model list through.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	return s.llmClient.ListModels(ctx)
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// ResolveSession returns candidateID when that session exists, and otherwise creates a
// session and returns its id.
//
// With racy consistency an unknown candidate gets a fresh id. With serialized consistency
// the candidate id itself is inserted if absent, so concurrent callers carrying the same
// unknown id share one session. An empty candidate always yields a fresh session.
func (s *Service) ResolveSession(ctx context.Context, candidateID string) (string, error) {
	if candidateID != "" && s.config.Consistency == domain.ConsistencySerialized {
		created, err := s.store.InsertSessionIfAbsent(ctx, s.newSession(candidateID))
		if err != nil {
			return "", fmt.Errorf("%w: resolve session %s: %w", domain.ErrStorageUnavailable, candidateID, err)
		}
		if created {
			s.metrics.SessionCreated()
			s.log(ctx).Info("session created", "session_id", candidateID)
		}
		return candidateID, nil
	}

	if candidateID != "" {
		existing, err := s.store.GetSession(ctx, candidateID)
		if err != nil {
			return "", fmt.Errorf("%w: lookup session %s: %w", domain.ErrStorageUnavailable, candidateID, err)
		}
		if existing != nil {
			return existing.SessionID, nil
		}
	}

	session := s.newSession(uuid.New().String())
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("%w: create session: %w", domain.ErrStorageUnavailable, err)
	}
	s.metrics.SessionCreated()
	s.log(ctx).Info("session created", "session_id", session.SessionID, "requested_id", candidateID)
	return session.SessionID, nil
}

func (s *Service) newSession(id string) *domain.Session {
	title := s.config.SessionTitle
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	return &domain.Session{
		SessionID: id,
		CreatedAt: s.now().UTC(),
		Title:     title,
	}
}

// BuildTurn records msg when it is a user message and returns the newest windowSize
// messages of the session, oldest first. Messages of any other role are accepted but
// not stored. A non-positive windowSize uses the configured default.
func (s *Service) BuildTurn(ctx context.Context, sessionID string, msg domain.ChatMessage, windowSize int) ([]domain.ChatMessage, error) {
	if msg.Role == domain.RoleUser {
		if err := s.persist(ctx, sessionID, domain.RoleUser, msg.Content); err != nil {
			return nil, err
		}
	} else {
		s.log(ctx).Debug("new message not stored", "session_id", sessionID, "role", msg.Role)
	}

	if windowSize <= 0 {
		windowSize = s.defaultWindowSize()
	}
	recent, err := s.store.GetRecentMessages(ctx, sessionID, windowSize)
	if err != nil {
		return nil, fmt.Errorf("%w: load history for %s: %w", domain.ErrStorageUnavailable, sessionID, err)
	}
	return domain.Window(recent), nil
}

// RecordReply stores the backend's reply as an assistant message.
func (s *Service) RecordReply(ctx context.Context, sessionID, content string) error {
	return s.persist(ctx, sessionID, domain.RoleAssistant, content)
}

func (s *Service) persist(ctx context.Context, sessionID, role, content string) error {
	msg := &domain.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: store %s message for %s: %w", domain.ErrStorageUnavailable, role, sessionID, err)
	}
	s.metrics.TurnPersisted(role)
	return nil
}

func (s *Service) defaultWindowSize() int {
	if s.config.ContextWindowSize > 0 {
		return s.config.ContextWindowSize
	}
	return 20
}

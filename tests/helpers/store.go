// Package helpers provides shared fixtures for package tests.
package helpers

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedSession creates a session with the given creation time.
func SeedSession(t *testing.T, s repository.Store, sessionID string, createdAt time.Time) {
	t.Helper()
	session := &domain.Session{SessionID: sessionID, CreatedAt: createdAt, Title: domain.DefaultSessionTitle}
	if err := s.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
}

// SeedTurns appends n user/assistant pairs to a session, one millisecond apart,
// contents "u1","a1","u2","a2",...
func SeedTurns(t *testing.T, s repository.Store, sessionID string, n int, start time.Time) {
	t.Helper()
	at := start
	for i := 1; i <= n; i++ {
		for _, m := range []domain.Message{
			{SessionID: sessionID, Role: domain.RoleUser, Content: "u" + strconv.Itoa(i)},
			{SessionID: sessionID, Role: domain.RoleAssistant, Content: "a" + strconv.Itoa(i)},
		} {
			at = at.Add(time.Millisecond)
			m.CreatedAt = at
			if err := s.CreateMessage(context.Background(), &m); err != nil {
				t.Fatalf("CreateMessage failed: %v", err)
			}
		}
	}
}


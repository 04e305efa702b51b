// Package repository defines the storage interface and its implementations.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// Store defines the interface for session and message persistence.
// Every method is a single committed statement (or one short transaction);
// connections are taken from the pool per call and always returned.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	// InsertSessionIfAbsent inserts the session unless its id already exists.
	// It reports whether this call created the row.
	InsertSessionIfAbsent(ctx context.Context, session *domain.Session) (bool, error)
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	// DeleteSessionsBefore removes sessions created before cutoff and all their messages.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Message operations
	// CreateMessage inserts the message and sets its store-assigned ID.
	CreateMessage(ctx context.Context, message *domain.Message) error
	// GetRecentMessages returns the newest limit messages of a session, oldest first.
	GetRecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	// GetMessages returns every message of a session, oldest first.
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func reverse(messages []domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

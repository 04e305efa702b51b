// Package domain defines the core domain models for the memory proxy.
package domain

// Message roles written by the proxy.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Consistency controls how concurrent requests on the same conversation interact.
type Consistency string

const (
	// ConsistencyRacy mirrors the historical behaviour: unknown ids always get a fresh
	// session and same-session turns may interleave.
	ConsistencyRacy Consistency = "racy"
	// ConsistencySerialized resolves unknown ids with insert-if-absent and serializes
	// turns per session.
	ConsistencySerialized Consistency = "serialized"
)

// Valid reports whether c is a known consistency level.
func (c Consistency) Valid() bool {
	return c == ConsistencyRacy || c == ConsistencySerialized
}

// SweepState represents the state of the retention sweeper.
type SweepState string

const (
	SweepStateIdle    SweepState = "idle"
	SweepStateRunning SweepState = "running"
)

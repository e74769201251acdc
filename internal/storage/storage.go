package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/logic-tracker/pkg/ruleset"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for session persistence and
// ruleset retrieval.
type Storage interface {
	HealthChecker
	Closer

	// SaveSession persists a session snapshot under its UUID
	SaveSession(ctx context.Context, id uuid.UUID, snap *tracker.Snapshot) error

	// LoadSession retrieves a session snapshot by UUID
	// Returns nil if the session doesn't exist
	LoadSession(ctx context.Context, id uuid.UUID) (*tracker.Snapshot, error)

	// DeleteSession removes a session by UUID
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// ListRulesets maps ruleset names to their filenames
	ListRulesets(ctx context.Context) (map[string]string, error)

	// GetRuleset loads and validates a ruleset file
	GetRuleset(ctx context.Context, filename string) (*ruleset.Ruleset, error)
}

package navigation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is the persisted view of a session.
type SessionRecord struct {
	ID        uuid.UUID
	Name      string
	Snapshot  Snapshot
	Closed    bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRepository defines the persistence contract for session snapshots.
type SessionRepository interface {
	// FindByID retrieves a session record by its identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*SessionRecord, error)

	// List retrieves session records with pagination, newest first.
	List(ctx context.Context, page, limit int) ([]*SessionRecord, int64, error)

	// CountByState returns session counts grouped by state.
	CountByState(ctx context.Context) (map[string]int64, error)

	// Save persists a new session record.
	Save(ctx context.Context, record *SessionRecord) error

	// Update overwrites the snapshot of an existing record.
	Update(ctx context.Context, record *SessionRecord) error
}

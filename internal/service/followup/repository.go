package followup

import (
	"context"

	"github.com/ignite/retention-monitor/internal/domain"
)

// Repository defines the data access contract for churn records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single record with its full call history.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.ChurnRecord, error)

	// Update loads the record, applies mutate, and persists the result
	// atomically. If mutate returns an error, nothing is written and the
	// error is returned unchanged. Returns ErrNotFound for a missing id and
	// ErrConflict when a concurrent writer got there first; the caller is
	// expected to reload and resubmit, the repository never retries.
	Update(ctx context.Context, id string, mutate func(*domain.ChurnRecord) error) (*domain.ChurnRecord, error)

	// Query returns records matching the filter, ordered by created_at DESC.
	Query(ctx context.Context, f QueryFilter) ([]domain.ChurnRecord, error)
}

// QueryFilter controls which records a Query returns. The zero value returns
// everything.
type QueryFilter struct {
	// ActiveOnly restricts to records whose follow-up is still active.
	ActiveOnly bool
	Limit      int
	Offset     int
}

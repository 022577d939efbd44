package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record exists for the given id.
var ErrNotFound = errors.New("patient not found")

// ErrQueueNumberConflict is returned when a concurrent registration claimed
// the same queue number first. Callers retry the create.
var ErrQueueNumberConflict = errors.New("queue number already taken")

type Repository interface {
	// Create persists a new record, assigning its id and computing the next
	// queue number for r.QueueDate in the same statement. Returns
	// ErrQueueNumberConflict when a concurrent registration won the number.
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListUnserved returns the unserved records registered on the given day,
	// ordered by queue number.
	ListUnserved(ctx context.Context, day time.Time) ([]*Record, error)
	// MarkServed flips is_served for the record. Serving an already-served
	// record succeeds without changing served_at. Returns ErrNotFound when
	// the id is unknown.
	MarkServed(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
	DayStats(ctx context.Context, day time.Time) (*Stats, error)
}

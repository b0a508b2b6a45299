package store

import (
	"context"
	"time"

	"github.com/cipherhq/ticketrack-sub010/internal/domain"
)

// TicketPatch is a partial update merged onto a cached ticket. A nil
// IsCheckedIn leaves the check-in fields untouched; when IsCheckedIn is set,
// CheckedInAt and CheckedInBy are written as given (nil clears them, which is
// how a check-out nulls the session fields).
type TicketPatch struct {
	IsCheckedIn *bool
	CheckedInAt *time.Time
	CheckedInBy *string
}

// CheckInStore defines the local durable store surface used by the check-in
// processor and the sync engine. Point lookups return (nil, nil) on a cache
// miss; only storage-substrate faults surface as errors.
type CheckInStore interface {
	// CacheEventData atomically upserts one event snapshot and bulk-upserts
	// its tickets, stamping the event's cached_at.
	CacheEventData(ctx context.Context, eventID string, meta domain.CachedEvent, tickets []domain.CachedTicket) error

	// OfflineTickets returns all cached tickets for an event.
	OfflineTickets(ctx context.Context, eventID string) ([]domain.CachedTicket, error)

	// TicketByCode looks a ticket up by its unique code.
	TicketByCode(ctx context.Context, code string) (*domain.CachedTicket, error)

	// TicketByID looks a ticket up by primary key.
	TicketByID(ctx context.Context, id string) (*domain.CachedTicket, error)

	// UpdateTicketLocally merges a patch onto a cached ticket and returns the
	// updated record, or nil if the ticket is not cached.
	UpdateTicketLocally(ctx context.Context, ticketID string, patch TicketPatch) (*domain.CachedTicket, error)

	// QueueCheckIn appends a pending record (status forced to pending,
	// created_at stamped) and returns the assigned identifier.
	QueueCheckIn(ctx context.Context, rec domain.PendingCheckIn) (int64, error)

	// PendingCheckIns returns all pending records ordered oldest-first by
	// creation. The sync engine depends on this ordering.
	PendingCheckIns(ctx context.Context) ([]domain.PendingCheckIn, error)

	// PendingCount counts pending records.
	PendingCount(ctx context.Context) (int, error)

	// FailedCheckIns returns terminally failed records not yet requeued,
	// oldest first, for the administrative replay path.
	FailedCheckIns(ctx context.Context) ([]domain.PendingCheckIn, error)

	// MarkCheckInSynced transitions a record to synced and stamps synced_at.
	MarkCheckInSynced(ctx context.Context, id int64) error

	// MarkCheckInRequeued stamps a failed record as replayed; it keeps its
	// failed status but drops out of FailedCheckIns.
	MarkCheckInRequeued(ctx context.Context, id int64) error

	// MarkCheckInFailed transitions a record to failed with an error string.
	MarkCheckInFailed(ctx context.Context, id int64, errMsg string) error

	// CachedEvent returns the cached snapshot for an event, or nil when the
	// event is not cached.
	CachedEvent(ctx context.Context, eventID string) (*domain.CachedEvent, error)

	// ClearEventCache evicts one event snapshot and its tickets. The pending
	// queue is untouched; it is an append-only audit trail.
	ClearEventCache(ctx context.Context, eventID string) error

	// ClearAllCache wipes events, tickets and the pending queue.
	ClearAllCache(ctx context.Context) error

	// InitSchema creates tables and indexes if they don't exist.
	InitSchema(ctx context.Context) error

	// Ping checks that the underlying database is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

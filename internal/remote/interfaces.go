package remote

import (
	"context"
	"errors"
	"time"

	"github.com/cipherhq/ticketrack-sub010/internal/domain"
)

// ErrNotFound reports that the remote authority has no record of the
// requested ticket or event.
var ErrNotFound = errors.New("not found on server")

// TicketState is the authoritative check-in state of one ticket.
type TicketState struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	IsCheckedIn bool   `json:"is_checked_in"`
}

// CheckInUpdate is the write applied to a remote ticket. CheckedInAt and
// CheckedInBy are populated when transitioning to checked-in and nil (nulled
// remotely) when transitioning to checked-out.
type CheckInUpdate struct {
	IsCheckedIn bool       `json:"is_checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at"`
	CheckedInBy *string    `json:"checked_in_by"`
}

// EventMeta is the remote event snapshot used to refresh the local cache.
type EventMeta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"start_date"`
	VenueName   string    `json:"venue_name"`
	OrganizerID string    `json:"organizer_id"`
}

// TicketAuthority is the remote system of record for tickets and events.
type TicketAuthority interface {
	// FetchTicket returns the authoritative state of a ticket, or ErrNotFound.
	FetchTicket(ctx context.Context, ticketID string) (*TicketState, error)

	// UpdateTicketCheckIn applies a check-in state change to a remote ticket.
	UpdateTicketCheckIn(ctx context.Context, ticketID string, update CheckInUpdate) error

	// FetchEventMeta returns the remote event snapshot, or ErrNotFound.
	FetchEventMeta(ctx context.Context, eventID string) (*EventMeta, error)

	// FetchEventTickets returns the event's tickets filtered to the given
	// payment statuses, ordered by attendee name.
	FetchEventTickets(ctx context.Context, eventID string, paymentStatuses []string) ([]domain.CachedTicket, error)
}

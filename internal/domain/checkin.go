package domain

import "time"

// Lifecycle status of a queued check-in mutation. Transitions are monotonic:
// pending moves to synced or failed and never back.
const (
	CheckInStatusPending = "pending"
	CheckInStatusSynced  = "synced"
	CheckInStatusFailed  = "failed"
)

// ValidPaymentStatuses lists the payment states that admit a ticket to the
// door. Tickets outside this set are never cached for an event refresh and
// never accepted by the check-in processor.
var ValidPaymentStatuses = []string{"completed", "free", "paid", "complimentary"}

// CachedEvent is the offline snapshot of an event. CachedAt marks when the
// snapshot was taken; the store overwrites it on every cache or refresh.
type CachedEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"start_date"`
	VenueName   string    `json:"venue_name"`
	OrganizerID string    `json:"organizer_id"`
	CachedAt    time.Time `json:"cached_at"`
}

// CachedTicket is the offline snapshot of a single ticket. Check-in fields
// are patched locally by the processor and superseded wholesale on refresh.
type CachedTicket struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	TicketCode    string     `json:"ticket_code"`
	AttendeeName  string     `json:"attendee_name"`
	AttendeeEmail string     `json:"attendee_email"`
	TicketType    string     `json:"ticket_type"`
	Quantity      int        `json:"quantity"`
	IsCheckedIn   bool       `json:"is_checked_in"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy   *string    `json:"checked_in_by,omitempty"`
	PaymentStatus string     `json:"payment_status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// HasValidPayment reports whether the ticket's payment status admits it to
// check-in.
func (t *CachedTicket) HasValidPayment() bool {
	for _, s := range ValidPaymentStatuses {
		if t.PaymentStatus == s {
			return true
		}
	}
	return false
}

// PendingCheckIn is one queued, not-yet-confirmed mutation. Records are
// append-only: the store assigns the id and CreatedAt on enqueue, and only
// the sync engine moves Status to a terminal state.
type PendingCheckIn struct {
	ID       int64  `json:"id"`
	TicketID string `json:"ticket_id"`
	EventID  string `json:"event_id"`

	// IsUndo false means check-in, true means check-out.
	IsUndo bool `json:"is_undo"`

	// CheckedInAt and CheckedInBy are applied to the remote ticket when the
	// record confirms a check-in; a check-out nulls them remotely.
	CheckedInAt time.Time `json:"checked_in_at"`
	CheckedInBy string    `json:"checked_in_by"`

	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

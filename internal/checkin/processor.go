package checkin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/domain"
	"github.com/cipherhq/ticketrack-sub010/internal/store"
)

// State is the processor's position in the scan cycle.
type State string

const (
	StateScanning   State = "scanning"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateCheckedOut State = "checked_out"
	StateError      State = "error"
)

// DeviceInfo describes the scanning device, recorded with each check-in.
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Request is one operator action: a scanned or manually entered ticket code
// (or raw ticket id) against the event currently in context.
type Request struct {
	Code     string
	EventID  string
	Operator string
	Method   string // qr_code, nfc, manual
	Zone     string
	Device   DeviceInfo
}

// Result is the terminal outcome of one attempt.
type Result struct {
	State        State
	Message      string
	AttendeeName string
	TicketCode   string

	// SessionID and Zone are set on a check-in.
	SessionID string
	Zone      string

	// DurationMinutes is set on a check-out: whole minutes since the
	// check-in that opened the session.
	DurationMinutes int
}

// Processor decides whether an operator action is a check-in or a check-out,
// patches the local ticket and appends a pending mutation. It touches only
// the local store and never blocks on the sync engine.
type Processor struct {
	store       store.CheckInStore
	defaultZone string
	log         *zap.Logger

	mu    sync.Mutex
	state State

	now func() time.Time
}

// NewProcessor creates a new check-in processor in the scanning state
func NewProcessor(s store.CheckInStore, defaultZone string, log *zap.Logger) *Processor {
	return &Processor{
		store:       s,
		defaultZone: defaultZone,
		log:         log,
		state:       StateScanning,
		now:         time.Now,
	}
}

// State returns the processor's current state
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset re-arms the processor back to scanning after a terminal state
func (p *Processor) Reset() {
	p.setState(StateScanning)
}

// Process runs one attempt through the state machine and returns its
// terminal outcome.
func (p *Processor) Process(ctx context.Context, req Request) Result {
	p.setState(StateProcessing)
	res := p.process(ctx, req)
	p.setState(res.State)
	return res
}

func (p *Processor) process(ctx context.Context, req Request) Result {
	raw := strings.TrimSpace(req.Code)
	if raw == "" {
		return errorResult("Please enter a valid ticket code.", "")
	}

	var (
		ticket *domain.CachedTicket
		err    error
	)
	if looksLikeUUID(raw) {
		ticket, err = p.store.TicketByID(ctx, strings.ToLower(raw))
	} else {
		ticket, err = p.store.TicketByCode(ctx, strings.ToUpper(raw))
	}
	if err != nil {
		return errorResult(err.Error(), "")
	}
	if ticket == nil {
		return errorResult("Invalid ticket", "")
	}
	if ticket.EventID != req.EventID {
		return errorResult("Ticket is not for this event", ticket.AttendeeName)
	}
	if !ticket.HasValidPayment() {
		msg := fmt.Sprintf("This ticket has status %q and cannot be checked in.", ticket.PaymentStatus)
		return errorResult(msg, ticket.AttendeeName)
	}

	if ticket.IsCheckedIn {
		return p.checkOut(ctx, req, ticket)
	}
	return p.checkIn(ctx, req, ticket)
}

// checkIn opens a session: patch the local ticket, queue the mutation.
func (p *Processor) checkIn(ctx context.Context, req Request, ticket *domain.CachedTicket) Result {
	now := p.now().UTC()
	zone := req.Zone
	if zone == "" {
		zone = p.defaultZone
	}
	method := req.Method
	if method == "" {
		method = "manual"
	}
	sessionID := uuid.NewString()

	checkedIn := true
	operator := req.Operator
	_, err := p.store.UpdateTicketLocally(ctx, ticket.ID, store.TicketPatch{
		IsCheckedIn: &checkedIn,
		CheckedInAt: &now,
		CheckedInBy: &operator,
	})
	if err != nil {
		return errorResult(err.Error(), ticket.AttendeeName)
	}

	_, err = p.store.QueueCheckIn(ctx, domain.PendingCheckIn{
		TicketID:    ticket.ID,
		EventID:     req.EventID,
		IsUndo:      false,
		CheckedInAt: now,
		CheckedInBy: req.Operator,
	})
	if err != nil {
		return errorResult(err.Error(), ticket.AttendeeName)
	}

	p.log.Info("Attendee checked in",
		zap.String("ticket_id", ticket.ID),
		zap.String("event_id", req.EventID),
		zap.String("session_id", sessionID),
		zap.String("method", method),
		zap.String("zone", zone),
		zap.String("operator", req.Operator),
		zap.String("platform", req.Device.Platform))

	return Result{
		State:        StateSuccess,
		Message:      fmt.Sprintf("%s checked in.", ticket.AttendeeName),
		AttendeeName: ticket.AttendeeName,
		TicketCode:   ticket.TicketCode,
		SessionID:    sessionID,
		Zone:         zone,
	}
}

// checkOut closes the open session and computes its duration.
func (p *Processor) checkOut(ctx context.Context, req Request, ticket *domain.CachedTicket) Result {
	now := p.now().UTC()

	minutes := 0
	if ticket.CheckedInAt != nil {
		minutes = int(math.Round(now.Sub(*ticket.CheckedInAt).Minutes()))
		if minutes < 0 {
			minutes = 0
		}
	}

	checkedIn := false
	_, err := p.store.UpdateTicketLocally(ctx, ticket.ID, store.TicketPatch{
		IsCheckedIn: &checkedIn,
	})
	if err != nil {
		return errorResult(err.Error(), ticket.AttendeeName)
	}

	_, err = p.store.QueueCheckIn(ctx, domain.PendingCheckIn{
		TicketID:    ticket.ID,
		EventID:     req.EventID,
		IsUndo:      true,
		CheckedInAt: now,
		CheckedInBy: req.Operator,
	})
	if err != nil {
		return errorResult(err.Error(), ticket.AttendeeName)
	}

	p.log.Info("Attendee checked out",
		zap.String("ticket_id", ticket.ID),
		zap.String("event_id", req.EventID),
		zap.Int("duration_minutes", minutes),
		zap.String("operator", req.Operator))

	return Result{
		State:           StateCheckedOut,
		Message:         fmt.Sprintf("Checked out successfully! You were here for %d minutes.", minutes),
		AttendeeName:    ticket.AttendeeName,
		TicketCode:      ticket.TicketCode,
		DurationMinutes: minutes,
	}
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func errorResult(message, attendee string) Result {
	return Result{
		State:        StateError,
		Message:      message,
		AttendeeName: attendee,
	}
}

// looksLikeUUID distinguishes a raw ticket id from a human-entered code.
func looksLikeUUID(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}

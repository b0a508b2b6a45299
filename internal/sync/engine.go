package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/domain"
	"github.com/cipherhq/ticketrack-sub010/internal/remote"
	"github.com/cipherhq/ticketrack-sub010/internal/store"
)

// ErrSyncInProgress reports that a sync pass is already running; the second
// trigger is a no-op.
var ErrSyncInProgress = errors.New("sync already in progress")

// Result aggregates one sync pass.
type Result struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Engine drains the pending check-in queue against the remote authority.
// Records are processed strictly oldest-first; a record whose desired state
// the remote already reflects is marked synced without a write, and one
// record's failure never aborts the rest of the pass.
type Engine struct {
	store       store.CheckInStore
	authority   remote.TicketAuthority
	callTimeout time.Duration
	log         *zap.Logger

	running atomic.Bool
}

// NewEngine creates a new synchronization engine
func NewEngine(s store.CheckInStore, authority remote.TicketAuthority, callTimeout time.Duration, log *zap.Logger) *Engine {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Engine{
		store:       s,
		authority:   authority,
		callTimeout: callTimeout,
		log:         log,
	}
}

// Sync runs one pass over the pending queue. If a pass is already running it
// returns ErrSyncInProgress without touching the queue.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer e.running.Store(false)

	return e.drain(ctx)
}

func (e *Engine) drain(ctx context.Context) (Result, error) {
	pending, err := e.store.PendingCheckIns(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load pending check-ins: %w", err)
	}
	if len(pending) == 0 {
		return Result{}, nil
	}

	e.log.Info("Sync pass starting", zap.Int("pending", len(pending)))

	var result Result
	refresh := make(map[string]struct{})

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		state, err := e.fetchTicket(ctx, rec.TicketID)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, remote.ErrNotFound) {
				msg = "Ticket not found on server"
			}
			e.markFailed(ctx, rec, msg)
			result.Failed++
			continue
		}

		// The event's cache is refreshed after the pass whether or not this
		// record succeeds; that picks up out-of-band remote changes.
		refresh[state.EventID] = struct{}{}

		desired := !rec.IsUndo
		if state.IsCheckedIn == desired {
			// Remote already reflects the desired state; re-running sync, or
			// a concurrent device having applied the same change, is a no-op.
			e.markSynced(ctx, rec)
			result.Synced++
			continue
		}

		update := remote.CheckInUpdate{IsCheckedIn: desired}
		if desired {
			at := rec.CheckedInAt
			by := rec.CheckedInBy
			update.CheckedInAt = &at
			update.CheckedInBy = &by
		}

		if err := e.updateTicket(ctx, rec.TicketID, update); err != nil {
			e.markFailed(ctx, rec, err.Error())
			result.Failed++
			continue
		}

		e.markSynced(ctx, rec)
		result.Synced++
	}

	e.refreshEvents(ctx, refresh)

	e.log.Info("Sync pass complete",
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Int("events_refreshed", len(refresh)))

	return result, nil
}

func (e *Engine) fetchTicket(ctx context.Context, ticketID string) (*remote.TicketState, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.authority.FetchTicket(callCtx, ticketID)
}

func (e *Engine) updateTicket(ctx context.Context, ticketID string, update remote.CheckInUpdate) error {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.authority.UpdateTicketCheckIn(callCtx, ticketID, update)
}

// refreshEvents overwrites the local snapshot of every touched event. A
// refresh failure is logged and swallowed; it never affects record statuses
// or other events' refreshes.
func (e *Engine) refreshEvents(ctx context.Context, events map[string]struct{}) {
	ids := make([]string, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, eventID := range ids {
		if err := e.refreshEvent(ctx, eventID); err != nil {
			e.log.Warn("Event cache refresh failed",
				zap.String("event_id", eventID),
				zap.Error(err))
		}
	}
}

func (e *Engine) refreshEvent(ctx context.Context, eventID string) error {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	meta, err := e.authority.FetchEventMeta(callCtx, eventID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to fetch event metadata: %w", err)
	}

	callCtx, cancel = context.WithTimeout(ctx, e.callTimeout)
	tickets, err := e.authority.FetchEventTickets(callCtx, eventID, domain.ValidPaymentStatuses)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to fetch event tickets: %w", err)
	}

	ev := domain.CachedEvent{
		ID:          meta.ID,
		Title:       meta.Title,
		StartDate:   meta.StartDate,
		VenueName:   meta.VenueName,
		OrganizerID: meta.OrganizerID,
	}
	if err := e.store.CacheEventData(ctx, eventID, ev, tickets); err != nil {
		return fmt.Errorf("failed to overwrite local snapshot: %w", err)
	}
	return nil
}

// markSynced and markFailed log storage faults instead of propagating them: a
// record left pending will be reconciled idempotently on the next pass.
func (e *Engine) markSynced(ctx context.Context, rec domain.PendingCheckIn) {
	if err := e.store.MarkCheckInSynced(ctx, rec.ID); err != nil {
		e.log.Error("Failed to mark check-in synced",
			zap.Int64("record_id", rec.ID),
			zap.Error(err))
	}
}

func (e *Engine) markFailed(ctx context.Context, rec domain.PendingCheckIn, msg string) {
	e.log.Warn("Pending check-in failed to sync",
		zap.Int64("record_id", rec.ID),
		zap.String("ticket_id", rec.TicketID),
		zap.String("reason", msg))
	if err := e.store.MarkCheckInFailed(ctx, rec.ID, msg); err != nil {
		e.log.Error("Failed to mark check-in failed",
			zap.Int64("record_id", rec.ID),
			zap.Error(err))
	}
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/checkin"
	"github.com/cipherhq/ticketrack-sub010/internal/domain"
	"github.com/cipherhq/ticketrack-sub010/internal/dto"
	"github.com/cipherhq/ticketrack-sub010/internal/remote"
	"github.com/cipherhq/ticketrack-sub010/internal/store"
)

// GateService ties the local store, the remote authority, the check-in
// processor and the sync engine into the operations the scan UI calls.
type GateService struct {
	store     store.CheckInStore
	authority remote.TicketAuthority
	processor CheckInProcessor
	syncer    Syncer
	log       *zap.Logger
}

// NewGateService creates a new gate service
func NewGateService(s store.CheckInStore, authority remote.TicketAuthority, processor CheckInProcessor, syncer Syncer, log *zap.Logger) *GateService {
	return &GateService{
		store:     s,
		authority: authority,
		processor: processor,
		syncer:    syncer,
		log:       log,
	}
}

// CacheEvent downloads an event's metadata and valid tickets from the remote
// authority into the local store, scoped to the requesting organizer.
func (s *GateService) CacheEvent(ctx context.Context, eventID, organizerID string) (*dto.CacheEventResponse, error) {
	meta, err := s.authority.FetchEventMeta(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	if meta.OrganizerID != organizerID {
		// An event belonging to another organizer is indistinguishable from
		// a missing one to the caller.
		return nil, fmt.Errorf("event %s: %w", eventID, remote.ErrNotFound)
	}

	tickets, err := s.authority.FetchEventTickets(ctx, eventID, domain.ValidPaymentStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event tickets: %w", err)
	}

	ev := domain.CachedEvent{
		ID:          meta.ID,
		Title:       meta.Title,
		StartDate:   meta.StartDate,
		VenueName:   meta.VenueName,
		OrganizerID: meta.OrganizerID,
	}
	if err := s.store.CacheEventData(ctx, eventID, ev, tickets); err != nil {
		return nil, fmt.Errorf("failed to cache event data: %w", err)
	}

	cached, err := s.store.CachedEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back cached event: %w", err)
	}

	resp := &dto.CacheEventResponse{
		EventID:     eventID,
		TicketCount: len(tickets),
	}
	if cached != nil {
		resp.CachedAt = cached.CachedAt
	}

	s.log.Info("Event cached for offline use",
		zap.String("event_id", eventID),
		zap.Int("ticket_count", len(tickets)))

	return resp, nil
}

// CacheStatus reports whether an event is cached and when
func (s *GateService) CacheStatus(ctx context.Context, eventID string) (*dto.CacheStatusResponse, error) {
	cached, err := s.store.CachedEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return &dto.CacheStatusResponse{EventID: eventID, Cached: false}, nil
	}
	cachedAt := cached.CachedAt
	return &dto.CacheStatusResponse{
		EventID:  eventID,
		Cached:   true,
		Title:    cached.Title,
		CachedAt: &cachedAt,
	}, nil
}

// ClearEventCache evicts one event and its tickets from the local store
func (s *GateService) ClearEventCache(ctx context.Context, eventID string) error {
	return s.store.ClearEventCache(ctx, eventID)
}

// ClearAllCache wipes all offline data
func (s *GateService) ClearAllCache(ctx context.Context) error {
	return s.store.ClearAllCache(ctx)
}

// Attendees projects the cached tickets of an event into the attendee list
// the scan UI renders while offline.
func (s *GateService) Attendees(ctx context.Context, eventID string) (*dto.AttendeesResponse, error) {
	tickets, err := s.store.OfflineTickets(ctx, eventID)
	if err != nil {
		return nil, err
	}

	resp := &dto.AttendeesResponse{
		EventID:   eventID,
		Attendees: make([]dto.AttendeeData, 0, len(tickets)),
	}
	for _, t := range tickets {
		ticketType := t.TicketType
		if ticketType == "" {
			ticketType = "Standard"
		}
		quantity := t.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		resp.Attendees = append(resp.Attendees, dto.AttendeeData{
			ID:           t.ID,
			Name:         t.AttendeeName,
			Email:        t.AttendeeEmail,
			TicketCode:   t.TicketCode,
			TicketType:   ticketType,
			Quantity:     quantity,
			CheckedIn:    t.IsCheckedIn,
			CheckInTime:  t.CheckedInAt,
			CheckedInBy:  t.CheckedInBy,
			PurchaseDate: t.CreatedAt,
		})
	}
	return resp, nil
}

// CheckIn runs one operator action through the processor
func (s *GateService) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	result := s.processor.Process(ctx, checkin.Request{
		Code:     req.Code,
		EventID:  req.EventID,
		Operator: req.Operator,
		Method:   req.Method,
		Zone:     req.Zone,
		Device: checkin.DeviceInfo{
			UserAgent: req.UserAgent,
			Platform:  req.Platform,
		},
	})

	return &dto.CheckInResponse{
		Status:          string(result.State),
		Message:         result.Message,
		AttendeeName:    result.AttendeeName,
		TicketCode:      result.TicketCode,
		SessionID:       result.SessionID,
		Zone:            result.Zone,
		DurationMinutes: result.DurationMinutes,
	}, nil
}

// SyncNow triggers one sync pass
func (s *GateService) SyncNow(ctx context.Context) (*dto.SyncResponse, error) {
	result, err := s.syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SyncResponse{Synced: result.Synced, Failed: result.Failed}, nil
}

// PendingCount reports the pending-queue depth
func (s *GateService) PendingCount(ctx context.Context) (*dto.PendingCountResponse, error) {
	count, err := s.store.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.PendingCountResponse{Pending: count}, nil
}

// RetryFailed re-enqueues every not-yet-replayed failed record as a fresh
// pending record. Each original keeps its failed status for the audit trail
// but is stamped as requeued, so repeated retries never duplicate it; the
// sync engine's remote-state comparison absorbs any duplicate effect.
func (s *GateService) RetryFailed(ctx context.Context) (*dto.RetryFailedResponse, error) {
	failed, err := s.store.FailedCheckIns(ctx)
	if err != nil {
		return nil, err
	}

	requeued := 0
	for _, rec := range failed {
		_, err := s.store.QueueCheckIn(ctx, domain.PendingCheckIn{
			TicketID:    rec.TicketID,
			EventID:     rec.EventID,
			IsUndo:      rec.IsUndo,
			CheckedInAt: rec.CheckedInAt,
			CheckedInBy: rec.CheckedInBy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to requeue check-in %d: %w", rec.ID, err)
		}
		if err := s.store.MarkCheckInRequeued(ctx, rec.ID); err != nil {
			return nil, fmt.Errorf("failed to stamp requeued check-in %d: %w", rec.ID, err)
		}
		requeued++
	}

	if requeued > 0 {
		s.log.Info("Failed check-ins requeued", zap.Int("requeued", requeued))
	}

	return &dto.RetryFailedResponse{Requeued: requeued}, nil
}

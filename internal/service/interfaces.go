package service

import (
	"context"

	"github.com/cipherhq/ticketrack-sub010/internal/checkin"
	"github.com/cipherhq/ticketrack-sub010/internal/dto"
	"github.com/cipherhq/ticketrack-sub010/internal/sync"
)

// CheckInProcessor is the processor surface the service depends on
type CheckInProcessor interface {
	Process(ctx context.Context, req checkin.Request) checkin.Result
}

// Syncer is the sync-engine surface the service depends on
type Syncer interface {
	Sync(ctx context.Context) (sync.Result, error)
}

// GateServicer defines the interface for gate service operations
type GateServicer interface {
	CacheEvent(ctx context.Context, eventID, organizerID string) (*dto.CacheEventResponse, error)
	CacheStatus(ctx context.Context, eventID string) (*dto.CacheStatusResponse, error)
	ClearEventCache(ctx context.Context, eventID string) error
	ClearAllCache(ctx context.Context) error
	Attendees(ctx context.Context, eventID string) (*dto.AttendeesResponse, error)
	CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.CheckInResponse, error)
	SyncNow(ctx context.Context) (*dto.SyncResponse, error)
	PendingCount(ctx context.Context) (*dto.PendingCountResponse, error)
	RetryFailed(ctx context.Context) (*dto.RetryFailedResponse, error)
}

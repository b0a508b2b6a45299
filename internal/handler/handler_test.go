package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/dto"
	"github.com/cipherhq/ticketrack-sub010/internal/remote"
	syncengine "github.com/cipherhq/ticketrack-sub010/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockGateService struct {
	mock.Mock
}

func (m *MockGateService) CacheEvent(ctx context.Context, eventID, organizerID string) (*dto.CacheEventResponse, error) {
	args := m.Called(ctx, eventID, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CacheEventResponse), args.Error(1)
}

func (m *MockGateService) CacheStatus(ctx context.Context, eventID string) (*dto.CacheStatusResponse, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CacheStatusResponse), args.Error(1)
}

func (m *MockGateService) ClearEventCache(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockGateService) ClearAllCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateService) Attendees(ctx context.Context, eventID string) (*dto.AttendeesResponse, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AttendeesResponse), args.Error(1)
}

func (m *MockGateService) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CheckInResponse), args.Error(1)
}

func (m *MockGateService) SyncNow(ctx context.Context) (*dto.SyncResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SyncResponse), args.Error(1)
}

func (m *MockGateService) PendingCount(ctx context.Context) (*dto.PendingCountResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PendingCountResponse), args.Error(1)
}

func (m *MockGateService) RetryFailed(ctx context.Context) (*dto.RetryFailedResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RetryFailedResponse), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func newTestHandler(svc *MockGateService) *Handler {
	return NewHandler(svc, stubPinger{}, zap.NewNop())
}

func TestHandler_HealthCheck(t *testing.T) {
	handler := newTestHandler(new(MockGateService))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestHandler_HealthCheck_StoreDown(t *testing.T) {
	handler := NewHandler(new(MockGateService), stubPinger{err: errors.New("database locked")}, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestHandler_CheckIn(t *testing.T) {
	svc := new(MockGateService)
	svc.On("CheckIn", mock.Anything, mock.MatchedBy(func(r *dto.CheckInRequest) bool {
		return r.Code == "GATE-001" && r.EventID == "evt_1" && r.Operator == "staff_42"
	})).Return(&dto.CheckInResponse{
		Status:       "success",
		Message:      "Ada Obi checked in.",
		AttendeeName: "Ada Obi",
		TicketCode:   "GATE-001",
		SessionID:    "sess_1",
		Zone:         "main_entrance",
	}, nil)

	handler := newTestHandler(svc)

	body, _ := json.Marshal(dto.CheckInRequest{Code: "GATE-001", EventID: "evt_1", Operator: "staff_42"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.CheckInResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "sess_1", resp.SessionID)
	svc.AssertExpectations(t)
}

func TestHandler_CheckIn_MissingFields(t *testing.T) {
	svc := new(MockGateService)
	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkin", bytes.NewReader([]byte(`{"code":"GATE-001"}`)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	svc.AssertNotCalled(t, "CheckIn", mock.Anything, mock.Anything)
}

func TestHandler_CacheEvent(t *testing.T) {
	svc := new(MockGateService)
	svc.On("CacheEvent", mock.Anything, "evt_1", "org_9").Return(&dto.CacheEventResponse{
		EventID:     "evt_1",
		TicketCount: 120,
		CachedAt:    time.Date(2026, 9, 12, 17, 0, 0, 0, time.UTC),
	}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/evt_1/cache", bytes.NewReader([]byte(`{"organizer_id":"org_9"}`)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.CacheEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 120, resp.TicketCount)
}

func TestHandler_CacheEvent_NotFound(t *testing.T) {
	svc := new(MockGateService)
	svc.On("CacheEvent", mock.Anything, "evt_missing", "org_9").Return(nil, remote.ErrNotFound)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events/evt_missing/cache", bytes.NewReader([]byte(`{"organizer_id":"org_9"}`)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
}

func TestHandler_CacheStatus(t *testing.T) {
	cachedAt := time.Date(2026, 9, 12, 17, 0, 0, 0, time.UTC)
	svc := new(MockGateService)
	svc.On("CacheStatus", mock.Anything, "evt_1").Return(&dto.CacheStatusResponse{
		EventID:  "evt_1",
		Cached:   true,
		Title:    "Door Test Night",
		CachedAt: &cachedAt,
	}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/evt_1/cache", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.CacheStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, "Door Test Night", resp.Title)
}

func TestHandler_CacheStatus_InternalError(t *testing.T) {
	svc := new(MockGateService)
	svc.On("CacheStatus", mock.Anything, "evt_1").Return(nil, errors.New("database locked"))

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/evt_1/cache", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp.Error)
}

func TestHandler_ClearEventCache(t *testing.T) {
	svc := new(MockGateService)
	svc.On("ClearEventCache", mock.Anything, "evt_1").Return(nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/events/evt_1/cache", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_ClearAllCache(t *testing.T) {
	svc := new(MockGateService)
	svc.On("ClearAllCache", mock.Anything).Return(nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_Attendees(t *testing.T) {
	svc := new(MockGateService)
	svc.On("Attendees", mock.Anything, "evt_1").Return(&dto.AttendeesResponse{
		EventID: "evt_1",
		Attendees: []dto.AttendeeData{
			{ID: "t1", Name: "Ada Obi", TicketCode: "GATE-001", TicketType: "Standard", Quantity: 1},
		},
	}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/evt_1/attendees", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.AttendeesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Attendees, 1)
	assert.Equal(t, "Ada Obi", resp.Attendees[0].Name)
}

func TestHandler_Attendees_InternalError(t *testing.T) {
	svc := new(MockGateService)
	svc.On("Attendees", mock.Anything, "evt_1").Return(nil, errors.New("database locked"))

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/evt_1/attendees", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp.Error)
}

func TestHandler_SyncNow(t *testing.T) {
	svc := new(MockGateService)
	svc.On("SyncNow", mock.Anything).Return(&dto.SyncResponse{Synced: 5, Failed: 1}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Synced)
	assert.Equal(t, 1, resp.Failed)
}

func TestHandler_SyncNow_AlreadyRunning(t *testing.T) {
	svc := new(MockGateService)
	svc.On("SyncNow", mock.Anything).Return(nil, syncengine.ErrSyncInProgress)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sync_in_progress", resp.Error)
}

func TestHandler_SyncNow_InternalError(t *testing.T) {
	svc := new(MockGateService)
	svc.On("SyncNow", mock.Anything).Return(nil, errors.New("database locked"))

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp.Error)
}

func TestHandler_PendingCount(t *testing.T) {
	svc := new(MockGateService)
	svc.On("PendingCount", mock.Anything).Return(&dto.PendingCountResponse{Pending: 7}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sync/pending", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.PendingCountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Pending)
}

func TestHandler_RetryFailed(t *testing.T) {
	svc := new(MockGateService)
	svc.On("RetryFailed", mock.Anything).Return(&dto.RetryFailedResponse{Requeued: 2}, nil)

	handler := newTestHandler(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/retry-failed", nil)
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.RetryFailedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Requeued)
}

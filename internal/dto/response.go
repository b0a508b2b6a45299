package dto

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"code is required"`
}

// CheckInResponse represents the terminal outcome of one check-in attempt
type CheckInResponse struct {
	Status          string `json:"status" example:"success"`
	Message         string `json:"message" example:"Ada Obi checked in."`
	AttendeeName    string `json:"attendee_name,omitempty" example:"Ada Obi"`
	TicketCode      string `json:"ticket_code,omitempty" example:"TKT-4F7A2B"`
	SessionID       string `json:"session_id,omitempty"`
	Zone            string `json:"zone,omitempty" example:"main_entrance"`
	DurationMinutes int    `json:"duration_minutes,omitempty" example:"95"`
}

// CacheEventResponse represents a completed event download
type CacheEventResponse struct {
	EventID     string    `json:"event_id" example:"evt_123"`
	TicketCount int       `json:"ticket_count" example:"340"`
	CachedAt    time.Time `json:"cached_at"`
}

// CacheStatusResponse represents the cache state of one event
type CacheStatusResponse struct {
	EventID  string     `json:"event_id" example:"evt_123"`
	Cached   bool       `json:"cached" example:"true"`
	Title    string     `json:"title,omitempty"`
	CachedAt *time.Time `json:"cached_at,omitempty"`
}

// SyncResponse represents the aggregate result of one sync pass
type SyncResponse struct {
	Synced int `json:"synced" example:"12"`
	Failed int `json:"failed" example:"1"`
}

// PendingCountResponse represents the pending-queue depth for UI badges
type PendingCountResponse struct {
	Pending int `json:"pending" example:"3"`
}

// RetryFailedResponse represents a completed administrative replay
type RetryFailedResponse struct {
	Requeued int `json:"requeued" example:"2"`
}

// AttendeeData represents one cached attendee for offline rendering
type AttendeeData struct {
	ID           string     `json:"id"`
	Name         string     `json:"name" example:"Ada Obi"`
	Email        string     `json:"email,omitempty"`
	TicketCode   string     `json:"ticket_code" example:"TKT-4F7A2B"`
	TicketType   string     `json:"ticket_type" example:"Standard"`
	Quantity     int        `json:"quantity" example:"1"`
	CheckedIn    bool       `json:"checked_in"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckedInBy  *string    `json:"checked_in_by,omitempty"`
	PurchaseDate time.Time  `json:"purchase_date"`
}

// AttendeesResponse represents the offline attendee list for an event
type AttendeesResponse struct {
	EventID   string         `json:"event_id" example:"evt_123"`
	Attendees []AttendeeData `json:"attendees"`
}

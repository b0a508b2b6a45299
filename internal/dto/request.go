package dto

// CheckInRequest represents one operator scan or manual code entry
type CheckInRequest struct {
	Code     string `json:"code" binding:"required" example:"TKT-4F7A2B"`
	EventID  string `json:"event_id" binding:"required" example:"evt_123"`
	Operator string `json:"operator" binding:"required" example:"staff_42"`
	Method   string `json:"method" example:"qr_code"`
	Zone     string `json:"zone" example:"main_entrance"`

	UserAgent string `json:"user_agent" example:"DoorScan/2.1"`
	Platform  string `json:"platform" example:"android"`
}

// CacheEventRequest represents a request to download an event into the cache
type CacheEventRequest struct {
	OrganizerID string `json:"organizer_id" binding:"required" example:"org_9"`
}

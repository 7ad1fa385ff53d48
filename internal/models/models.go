package models

import "time"

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// WebSocket message types
const (
	MessageInvalidate = "invalidate"
	MessageNotice     = "notice"
)

// Notice is a user-facing notification (rendered as a toast by clients).
type Notice struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// StatusUpdateRequest is the request body for an admin status change
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// ListingDraft is the request body for creating or editing a listing.
// Photos are validated for count only; uploading them is handled elsewhere.
type ListingDraft struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	PriceEUR    int        `json:"price_eur"`
	Bedrooms    int        `json:"bedrooms"`
	Bathrooms   *int       `json:"bathrooms"`
	AreaM2      *float64   `json:"area_m2"`
	Address     *string    `json:"address"`
	City        *string    `json:"city"`
	PostalCode  *string    `json:"postal_code"`
	Lat         *float64   `json:"lat"`
	Lng         *float64   `json:"lng"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Status      string     `json:"status,omitempty"`
	Photos      []string   `json:"photos"`
}

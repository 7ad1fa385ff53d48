package models

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingStatus mirrors the listing_status enum of the data service.
type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusNeedFix  ListingStatus = "need_fix"
	StatusMerged   ListingStatus = "merged"
	StatusRejected ListingStatus = "rejected"
	StatusExpired  ListingStatus = "expired"
)

// ListingStatuses is every status value, in the order the admin stats report them.
var ListingStatuses = []ListingStatus{
	StatusPending, StatusApproved, StatusNeedFix, StatusMerged, StatusRejected, StatusExpired,
}

// ParseListingStatus validates s against the enum.
func ParseListingStatus(s string) (ListingStatus, error) {
	for _, st := range ListingStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown listing status %q", s)
}

// Listing is a property offered on the marketplace. It always has exactly one owning agent.
type Listing struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID     `gorm:"type:uuid;index;not null" json:"agent_id"`
	Title       string        `gorm:"not null" json:"title"`
	Description *string       `json:"description"`
	PriceEUR    int           `gorm:"column:price_eur;not null" json:"price_eur"`
	Bedrooms    int           `gorm:"not null" json:"bedrooms"`
	Bathrooms   *int          `json:"bathrooms"`
	AreaM2      *float64      `gorm:"column:area_m2" json:"area_m2"`
	Address     *string       `json:"address"`
	City        *string       `gorm:"index" json:"city"`
	PostalCode  *string       `json:"postal_code"`
	Status      ListingStatus `gorm:"type:varchar(16);index;not null;default:pending" json:"status"`
	Lat         *float64      `json:"lat"`
	Lng         *float64      `json:"lng"`
	ExpiresAt   *time.Time    `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Joined for the admin queue
	Agent *User `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	// Joined for the map and detail screens
	Photos []ListingPhoto `gorm:"foreignKey:ListingID" json:"photos,omitempty"`
}

func (Listing) TableName() string { return "listings" }

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = StatusPending
	}
	return nil
}

// AfterFind keeps preloaded photos in upload order.
func (l *Listing) AfterFind(tx *gorm.DB) error {
	slices.SortFunc(l.Photos, func(a, b ListingPhoto) int { return cmp.Compare(a.Position, b.Position) })
	return nil
}

// StatusCount is one row of the admin stats aggregation.
type StatusCount struct {
	Status ListingStatus `json:"status"`
	Count  int64         `json:"count"`
}

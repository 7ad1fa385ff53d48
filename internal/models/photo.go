package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingPhoto is one image URL of a listing. Position is the upload order; the
// first photo is the primary one shown on cards and map pins.
type ListingPhoto struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID `gorm:"type:uuid;index;not null" json:"listing_id"`
	URL       string    `gorm:"not null" json:"url"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func (ListingPhoto) TableName() string { return "listing_photos" }

func (p *ListingPhoto) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PhotosFromURLs numbers urls in order and marks the first as primary.
func PhotosFromURLs(listingID uuid.UUID, urls []string) []ListingPhoto {
	out := make([]ListingPhoto, len(urls))
	for i, u := range urls {
		out[i] = ListingPhoto{ListingID: listingID, URL: u, Position: i, IsPrimary: i == 0}
	}
	return out
}

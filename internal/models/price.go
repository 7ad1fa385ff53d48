package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceHistoryEntry is an append-only record of a listing's asking price.
type PriceHistoryEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID `gorm:"type:uuid;index;not null" json:"listing_id"`
	PriceEUR  int       `gorm:"column:price_eur;not null" json:"price_eur"`
	ChangedAt time.Time `gorm:"index;not null" json:"changed_at"`
}

func (PriceHistoryEntry) TableName() string { return "listing_prices" }

func (p *PriceHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ChangedAt.IsZero() {
		p.ChangedAt = time.Now().UTC()
	}
	return nil
}

// PriceTrend summarises a price history for the sparkline.
type PriceTrend struct {
	First  int     `json:"first"`
	Last   int     `json:"last"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Change float64 `json:"change"`
}

package store

import (
	"gorm.io/gorm"

	"github.com/vikasavnish/listinghub/internal/models"
)

// Service groups the tables the application reads and writes.
type Service struct {
	Listings   Table[models.Listing]
	Users      Table[models.User]
	Favourites Table[models.Favorite]
	Prices     Table[models.PriceHistoryEntry]
	Photos     Table[models.ListingPhoto]
}

// NewGormService backs every table with the same gorm connection.
func NewGormService(db *gorm.DB) *Service {
	return &Service{
		Listings:   NewGormTable[models.Listing](db),
		Users:      NewGormTable[models.User](db),
		Favourites: NewGormTable[models.Favorite](db),
		Prices:     NewGormTable[models.PriceHistoryEntry](db),
		Photos:     NewGormTable[models.ListingPhoto](db),
	}
}

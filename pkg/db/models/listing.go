package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing represents a vendor's sale entry for a game. StockQty is the
// remaining sellable inventory and is only mutated with guarded updates.
type Listing struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VendorID     uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	Title        string    `gorm:"column:title;not null"`
	Platform     string    `gorm:"column:platform;not null"`
	Description  *string   `gorm:"column:description"`
	ThumbnailURL *string   `gorm:"column:thumbnail_url"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	StockQty     int       `gorm:"column:stock_qty;not null;default:0"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	RatingSum    int64     `gorm:"column:rating_sum;not null;default:0"`
	RatingCount  int64     `gorm:"column:rating_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// RatingAverage returns the aggregate rating, zero when unrated.
func (l Listing) RatingAverage() float64 {
	if l.RatingCount == 0 {
		return 0
	}
	return float64(l.RatingSum) / float64(l.RatingCount)
}

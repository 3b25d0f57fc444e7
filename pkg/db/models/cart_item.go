package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds a listing reference plus the unit price frozen at the moment
// the listing was first added. Later price changes on the listing do not move
// the snapshot.
type CartItem struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_listing"`
	ListingID          uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_cart_listing"`
	VendorID           uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	VendorNameSnapshot string    `gorm:"column:vendor_name_snapshot;not null;default:''"`
	TitleSnapshot      string    `gorm:"column:title_snapshot;not null"`
	ThumbnailSnapshot  *string   `gorm:"column:thumbnail_snapshot"`
	Quantity           int       `gorm:"column:quantity;not null"`
	UnitPriceCents     int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LineSubtotalCents is quantity times the frozen unit price.
func (i CartItem) LineSubtotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

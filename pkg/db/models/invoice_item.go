package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceItem is a purchased line frozen from the cart at checkout time.
type InvoiceItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID      uuid.UUID  `gorm:"column:invoice_id;type:uuid;not null;index"`
	ListingID      uuid.UUID  `gorm:"column:listing_id;type:uuid;not null"`
	TitleSnapshot  string     `gorm:"column:title_snapshot;not null"`
	DescSnapshot   *string    `gorm:"column:description_snapshot"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64      `gorm:"column:line_total_cents;not null"`
	Rating         *int       `gorm:"column:rating"`
	RatedAt        *time.Time `gorm:"column:rated_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

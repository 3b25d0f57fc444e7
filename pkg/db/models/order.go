package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

// Order is the customer-facing record of a successful checkout. The per-vendor
// breakdown lives in the invoices that reference it.
type Order struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;index"`
	Currency        enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb"`
	SubtotalCents   int64          `gorm:"column:subtotal_cents;not null"`
	TaxCents        int64          `gorm:"column:tax_cents;not null;default:0"`
	TotalCents      int64          `gorm:"column:total_cents;not null"`
	PaymentID       *string        `gorm:"column:payment_id"`
	Invoices        []Invoice      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

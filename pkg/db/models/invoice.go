package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

// Invoice is the per-vendor slice of an order. Each status transition stamps
// its own timestamp column so the fulfillment history stays queryable.
type Invoice struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID   uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status     enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency   enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`

	SubtotalCents int64 `gorm:"column:subtotal_cents;not null"`
	TaxCents      int64 `gorm:"column:tax_cents;not null;default:0"`
	TotalCents    int64 `gorm:"column:total_cents;not null"`

	// ShipTo is frozen from the order at issuance; later address edits on
	// the customer's account never move it. PaymentID references the charge
	// that funded the parent order.
	ShipTo    *types.Address `gorm:"column:ship_to;type:jsonb"`
	PaymentID *string        `gorm:"column:payment_id"`

	// ReturnMsg carries the customer's return reason while the invoice is in
	// the return loop and the vendor's rejection note after a bounce back to
	// pending_return.
	ReturnMsg *string `gorm:"column:return_msg"`

	DeclinedAt         *time.Time `gorm:"column:declined_at"`
	AwaitingShipmentAt *time.Time `gorm:"column:awaiting_shipment_at"`
	ShippedAt          *time.Time `gorm:"column:shipped_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	PendingReturnAt    *time.Time `gorm:"column:pending_return_at"`
	AwaitingReturnAt   *time.Time `gorm:"column:awaiting_return_at"`

	Items     []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

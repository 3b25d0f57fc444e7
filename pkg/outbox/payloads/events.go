package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// OrderCreatedEvent signals a new checkout split across vendors.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	InvoiceIDs []uuid.UUID `json:"invoice_ids"`
	TotalCents int64       `json:"total_cents"`
}

// InvoiceCreatedEvent is emitted for each per-vendor invoice cut at checkout.
type InvoiceCreatedEvent struct {
	InvoiceID  uuid.UUID `json:"invoice_id"`
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	TotalCents int64     `json:"total_cents"`
}

// InvoiceStatusChangedEvent records a fulfillment transition.
type InvoiceStatusChangedEvent struct {
	InvoiceID uuid.UUID           `json:"invoice_id"`
	VendorID  uuid.UUID           `json:"vendor_id"`
	From      enums.InvoiceStatus `json:"from"`
	To        enums.InvoiceStatus `json:"to"`
	ChangedAt time.Time           `json:"changed_at"`
}

// InvoiceItemRatedEvent tells the worker to fold a new rating into the
// listing aggregate.
type InvoiceItemRatedEvent struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceItemID uuid.UUID `json:"invoice_item_id"`
	ListingID     uuid.UUID `json:"listing_id"`
	Rating        int       `json:"rating"`
}

// ReturnRequestedEvent is emitted when a customer opens the return loop.
type ReturnRequestedEvent struct {
	InvoiceID  uuid.UUID `json:"invoice_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Message    string    `json:"message,omitempty"`
}

// CheckoutCompletedEvent reports a fully settled checkout intent.
type CheckoutCompletedEvent struct {
	IntentID   uuid.UUID `json:"intent_id"`
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	TotalCents int64     `json:"total_cents"`
}

// CheckoutFailedEvent reports a checkout attempt that was unwound.
type CheckoutFailedEvent struct {
	IntentID   uuid.UUID `json:"intent_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

package invoices

import (
	"time"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// validTransitions encodes the fulfillment state machine. An invoice starts
// at pending; completed can reopen through the return loop and awaiting
// return bounces back to pending_return when the vendor rejects the return.
var validTransitions = map[enums.InvoiceStatus][]enums.InvoiceStatus{
	enums.InvoiceStatusPending: {
		enums.InvoiceStatusAwaitingShipment,
		enums.InvoiceStatusDeclined,
		enums.InvoiceStatusCancelled,
	},
	enums.InvoiceStatusAwaitingShipment: {
		enums.InvoiceStatusShipped,
		enums.InvoiceStatusDeclined,
		enums.InvoiceStatusCancelled,
	},
	enums.InvoiceStatusShipped: {
		enums.InvoiceStatusCompleted,
		enums.InvoiceStatusCancelled,
	},
	enums.InvoiceStatusCompleted: {
		enums.InvoiceStatusPendingReturn,
	},
	enums.InvoiceStatusPendingReturn: {
		enums.InvoiceStatusAwaitingReturn,
	},
	enums.InvoiceStatusAwaitingReturn: {
		enums.InvoiceStatusCompleted,
		enums.InvoiceStatusPendingReturn,
	},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to enums.InvoiceStatus) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// stampStatus records the transition time on the column owned by the new
// status. The pending column does not exist; creation time covers it.
func stampStatus(invoice *models.Invoice, status enums.InvoiceStatus, at time.Time) {
	switch status {
	case enums.InvoiceStatusDeclined:
		invoice.DeclinedAt = &at
	case enums.InvoiceStatusAwaitingShipment:
		invoice.AwaitingShipmentAt = &at
	case enums.InvoiceStatusShipped:
		invoice.ShippedAt = &at
	case enums.InvoiceStatusCompleted:
		invoice.CompletedAt = &at
	case enums.InvoiceStatusCancelled:
		invoice.CancelledAt = &at
	case enums.InvoiceStatusPendingReturn:
		invoice.PendingReturnAt = &at
	case enums.InvoiceStatusAwaitingReturn:
		invoice.AwaitingReturnAt = &at
	}
}

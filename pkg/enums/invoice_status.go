package enums

import "fmt"

// InvoiceStatus tracks the fulfillment lifecycle of a vendor invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending          InvoiceStatus = "pending"
	InvoiceStatusDeclined         InvoiceStatus = "declined"
	InvoiceStatusAwaitingShipment InvoiceStatus = "awaiting_shipment"
	InvoiceStatusShipped          InvoiceStatus = "shipped"
	InvoiceStatusCompleted        InvoiceStatus = "completed"
	InvoiceStatusCancelled        InvoiceStatus = "cancelled"
	InvoiceStatusPendingReturn    InvoiceStatus = "pending_return"
	InvoiceStatusAwaitingReturn   InvoiceStatus = "awaiting_return"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusDeclined,
	InvoiceStatusAwaitingShipment,
	InvoiceStatusShipped,
	InvoiceStatusCompleted,
	InvoiceStatusCancelled,
	InvoiceStatusPendingReturn,
	InvoiceStatusAwaitingReturn,
}

// String implements fmt.Stringer.
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (s InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}

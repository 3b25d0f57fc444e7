package enums

import "fmt"

// CheckoutIntentStatus records how far a checkout attempt progressed.
type CheckoutIntentStatus string

const (
	CheckoutIntentCreated         CheckoutIntentStatus = "created"
	CheckoutIntentStockReserved   CheckoutIntentStatus = "stock_reserved"
	CheckoutIntentPaymentCaptured CheckoutIntentStatus = "payment_captured"
	CheckoutIntentInvoicesIssued  CheckoutIntentStatus = "invoices_issued"
	CheckoutIntentComplete        CheckoutIntentStatus = "complete"
	CheckoutIntentFailed          CheckoutIntentStatus = "failed"
)

var validCheckoutIntentStatuses = []CheckoutIntentStatus{
	CheckoutIntentCreated,
	CheckoutIntentStockReserved,
	CheckoutIntentPaymentCaptured,
	CheckoutIntentInvoicesIssued,
	CheckoutIntentComplete,
	CheckoutIntentFailed,
}

// String implements fmt.Stringer.
func (s CheckoutIntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutIntentStatus.
func (s CheckoutIntentStatus) IsValid() bool {
	for _, candidate := range validCheckoutIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the intent has reached a final state.
func (s CheckoutIntentStatus) IsTerminal() bool {
	return s == CheckoutIntentComplete || s == CheckoutIntentFailed
}

// ParseCheckoutIntentStatus converts raw input into a CheckoutIntentStatus.
func ParseCheckoutIntentStatus(value string) (CheckoutIntentStatus, error) {
	for _, candidate := range validCheckoutIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout intent status %q", value)
}

package enums

import "fmt"

// OutboxAggregateType identifies the domain entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateInvoice        OutboxAggregateType = "invoice"
	AggregateListing        OutboxAggregateType = "listing"
	AggregateCheckoutIntent OutboxAggregateType = "checkout_intent"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateInvoice,
	AggregateListing,
	AggregateCheckoutIntent,
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType identifies the domain event carried by an outbox row.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventInvoiceCreated       OutboxEventType = "invoice_created"
	EventInvoiceStatusChanged OutboxEventType = "invoice_status_changed"
	EventInvoiceItemRated     OutboxEventType = "invoice_item_rated"
	EventReturnRequested      OutboxEventType = "return_requested"
	EventCheckoutCompleted    OutboxEventType = "checkout_completed"
	EventCheckoutFailed       OutboxEventType = "checkout_failed"
	EventListingRatingStale   OutboxEventType = "listing_rating_stale"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventInvoiceCreated,
	EventInvoiceStatusChanged,
	EventInvoiceItemRated,
	EventReturnRequested,
	EventCheckoutCompleted,
	EventCheckoutFailed,
	EventListingRatingStale,
}

// IsValid reports whether the value is a known OutboxEventType.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

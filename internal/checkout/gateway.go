package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/gamevault/gamevault-backend/pkg/square"
)

// paymentCompletedStatus is Square's terminal success status for a payment.
const paymentCompletedStatus = "COMPLETED"

// ChargeResult is the provider-neutral outcome of a payment operation.
type ChargeResult struct {
	PaymentID string
	Status    string
}

// PaymentGateway is the slice of the payment provider checkout depends on.
// FindByReference recovers a charge whose response was lost: the intent id
// rides on every payment as its reference, so the provider can be asked
// whether the money actually moved.
type PaymentGateway interface {
	Charge(ctx context.Context, amountCents int64, sourceToken, customerRef, orderRef string) (ChargeResult, error)
	Refund(ctx context.Context, paymentID string, amountCents int64, reason string) error
	Verify(ctx context.Context, paymentID string) (ChargeResult, error)
	FindByReference(ctx context.Context, reference string, since time.Time) (ChargeResult, bool, error)
}

// SquareGateway adapts the Square client to the checkout contract.
type SquareGateway struct {
	client *square.Client
}

// NewSquareGateway wraps a configured Square client.
func NewSquareGateway(client *square.Client) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

// Charge captures the full amount against the provided card token. The
// intent id doubles as the idempotency key so a retried charge is not
// double-billed.
func (g *SquareGateway) Charge(ctx context.Context, amountCents int64, sourceToken, customerRef, orderRef string) (ChargeResult, error) {
	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    amountCents,
		Currency:       "USD",
		CustomerID:     customerRef,
		SourceID:       sourceToken,
		IdempotencyKey: orderRef,
		ReferenceID:    orderRef,
	})
	if err != nil {
		return chargeResultFromPayment(payment), err
	}
	return chargeResultFromPayment(payment), nil
}

// Refund reverses a captured payment in full or in part.
func (g *SquareGateway) Refund(ctx context.Context, paymentID string, amountCents int64, reason string) error {
	_, err := g.client.RefundPayment(ctx, square.RefundCreateParams{
		PaymentID:      paymentID,
		AmountCents:    amountCents,
		Currency:       "USD",
		IdempotencyKey: "refund-" + paymentID,
		Reason:         reason,
	})
	return err
}

// FindByReference locates a payment by the reference id stamped at charge
// time. The second return reports whether any payment matched.
func (g *SquareGateway) FindByReference(ctx context.Context, reference string, since time.Time) (ChargeResult, bool, error) {
	payment, err := g.client.FindPaymentByReference(ctx, reference, since)
	if err != nil {
		return ChargeResult{}, false, err
	}
	if payment == nil {
		return ChargeResult{}, false, nil
	}
	return chargeResultFromPayment(payment), true, nil
}

// Verify looks up the live status of a payment.
func (g *SquareGateway) Verify(ctx context.Context, paymentID string) (ChargeResult, error) {
	payment, err := g.client.GetPayment(ctx, paymentID)
	if err != nil {
		return ChargeResult{}, err
	}
	return chargeResultFromPayment(payment), nil
}

func chargeResultFromPayment(payment interface {
	GetID() *string
	GetStatus() *string
}) ChargeResult {
	if payment == nil {
		return ChargeResult{}
	}
	result := ChargeResult{}
	if id := payment.GetID(); id != nil {
		result.PaymentID = *id
	}
	if status := payment.GetStatus(); status != nil {
		result.Status = *status
	}
	return result
}

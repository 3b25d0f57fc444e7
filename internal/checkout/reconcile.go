package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// FindStuckIntents returns non-terminal intents that stopped moving before
// the staleness cutoff.
func (s *Service) FindStuckIntents(ctx context.Context, limit int) ([]models.CheckoutIntent, error) {
	cutoff := time.Now().Add(-s.cfg.ReserveStaleAfter)
	return s.intents.FindStuck(ctx, []enums.CheckoutIntentStatus{
		enums.CheckoutIntentCreated,
		enums.CheckoutIntentStockReserved,
		enums.CheckoutIntentPaymentCaptured,
		enums.CheckoutIntentInvoicesIssued,
	}, cutoff, limit)
}

// ReconcileIntent finishes or unwinds one interrupted checkout attempt.
// A created intent reserved nothing and simply fails. A stock_reserved
// intent is the ambiguous case: the charge response may have been lost after
// the provider captured it, so the payment is looked up by the intent's
// reference before anything is released. A payment_captured intent has taken
// money, so the invoices are issued from the still-intact cart, or the
// payment is refunded when the order or cart vanished. An invoices_issued
// intent only needs its final marker.
func (s *Service) ReconcileIntent(ctx context.Context, intent models.CheckoutIntent) error {
	switch intent.Status {
	case enums.CheckoutIntentCreated:
		return s.intents.MarkFailed(ctx, intent.ID, "abandoned before stock reservation")

	case enums.CheckoutIntentStockReserved:
		return s.reconcileStockReserved(ctx, intent)

	case enums.CheckoutIntentPaymentCaptured:
		return s.reconcilePaymentCaptured(ctx, intent)

	case enums.CheckoutIntentInvoicesIssued:
		return s.finishIntent(ctx, intent.ID, orderIDValue(intent), intent.CustomerID, intent.AmountCents)

	default:
		return nil
	}
}

func (s *Service) reconcileStockReserved(ctx context.Context, intent models.CheckoutIntent) error {
	if intent.OrderID == nil {
		return s.intents.MarkFailed(ctx, intent.ID, "stale reservation without order")
	}

	// Ask the provider whether the lost charge actually landed. The intent
	// id was sent as the payment's reference, so a captured payment is
	// findable even though its id was never recorded.
	charge, found, err := s.gateway.FindByReference(ctx, intent.ID.String(), intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("look up payment for intent %s: %w", intent.ID, err)
	}
	if found && charge.Status == paymentCompletedStatus {
		if err := s.intents.SetPaymentCaptured(ctx, intent.ID, charge.PaymentID); err != nil {
			return fmt.Errorf("record recovered capture: %w", err)
		}
		intent.Status = enums.CheckoutIntentPaymentCaptured
		paymentID := charge.PaymentID
		intent.PaymentID = &paymentID
		return s.reconcilePaymentCaptured(ctx, intent)
	}

	return s.releaseAndFail(ctx, intent, "stale reservation released, no captured payment")
}

func (s *Service) reconcilePaymentCaptured(ctx context.Context, intent models.CheckoutIntent) error {
	paymentID := ""
	if intent.PaymentID != nil {
		paymentID = *intent.PaymentID
	}

	captured := false
	if paymentID != "" {
		charge, err := s.gateway.Verify(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("verify payment %s: %w", paymentID, err)
		}
		captured = charge.Status == paymentCompletedStatus
	}
	if !captured {
		// The capture marker was written but the provider never completed
		// the charge. Nothing to refund; release the reservation.
		return s.releaseAndFail(ctx, intent, "payment not completed provider side")
	}

	if intent.OrderID == nil {
		return s.refundAndFail(ctx, intent, paymentID, "order missing after capture")
	}
	order, err := s.orders.FindByID(ctx, *intent.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.refundAndFail(ctx, intent, paymentID, "order missing after capture")
		}
		return err
	}

	customerCart, err := s.carts.GetOrCreate(ctx, intent.CustomerID)
	if err != nil {
		return fmt.Errorf("load cart for reconciliation: %w", err)
	}
	if len(customerCart.Items) == 0 {
		// The cart is gone and the invoices were never cut; the money has
		// to go back.
		return s.refundAndFail(ctx, intent, paymentID, "cart lost before invoice issuance")
	}

	if _, err := s.issueInvoices(ctx, intent.CustomerID, order, customerCart.Items, intent.ID, paymentID); err != nil {
		return fmt.Errorf("issue invoices during reconciliation: %w", err)
	}
	return s.finishIntent(ctx, intent.ID, order.ID, intent.CustomerID, intent.AmountCents)
}

// releaseAndFail restores the reservation held by an intent whose payment
// never completed. The cart is only cleared after invoices are issued, so
// its lines still describe what was reserved.
func (s *Service) releaseAndFail(ctx context.Context, intent models.CheckoutIntent, reason string) error {
	if intent.OrderID == nil {
		return s.intents.MarkFailed(ctx, intent.ID, reason)
	}
	customerCart, err := s.carts.GetOrCreate(ctx, intent.CustomerID)
	if err != nil {
		return fmt.Errorf("load cart for reconciliation: %w", err)
	}
	s.unwindReservation(ctx, customerCart.Items, *intent.OrderID, intent.ID, intent.CustomerID, reason)
	return nil
}

func (s *Service) refundAndFail(ctx context.Context, intent models.CheckoutIntent, paymentID, reason string) error {
	if paymentID != "" {
		if err := s.gateway.Refund(ctx, paymentID, intent.AmountCents, reason); err != nil {
			return fmt.Errorf("refund during reconciliation: %w", err)
		}
	}
	return s.intents.MarkFailed(ctx, intent.ID, reason)
}

func orderIDValue(intent models.CheckoutIntent) uuid.UUID {
	if intent.OrderID != nil {
		return *intent.OrderID
	}
	return uuid.Nil
}

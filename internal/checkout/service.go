package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/internal/cart"
	"github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/internal/tax"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/outbox/payloads"
	pkgredis "github.com/gamevault/gamevault-backend/pkg/redis"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

const lockScope = "checkout"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service coordinates the whole checkout: cart validation, stock
// reservation, payment capture, and the per-vendor invoice split. Progress
// is journaled on a CheckoutIntent so the reconciliation job can finish or
// unwind an interrupted attempt.
type Service struct {
	carts    *cart.Service
	listings *listings.Repository
	orders   *orders.Repository
	intents  *IntentRepository
	invoices *invoices.Service
	tx       txRunner
	gateway  PaymentGateway
	locker   pkgredis.Locker
	events   eventEmitter
	logg     *logger.Logger
	cfg      config.CheckoutConfig
}

// NewService wires the checkout orchestrator.
func NewService(
	carts *cart.Service,
	listingRepo *listings.Repository,
	orderRepo *orders.Repository,
	intents *IntentRepository,
	invoiceSvc *invoices.Service,
	tx txRunner,
	gateway PaymentGateway,
	locker pkgredis.Locker,
	events eventEmitter,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (*Service, error) {
	if carts == nil || listingRepo == nil || orderRepo == nil || intents == nil || invoiceSvc == nil {
		return nil, fmt.Errorf("checkout stores required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &Service{
		carts:    carts,
		listings: listingRepo,
		orders:   orderRepo,
		intents:  intents,
		invoices: invoiceSvc,
		tx:       tx,
		gateway:  gateway,
		locker:   locker,
		events:   events,
		logg:     logg,
		cfg:      cfg,
	}, nil
}

// CheckoutInput is the customer's checkout submission.
type CheckoutInput struct {
	PaymentToken    string
	ShippingAddress types.Address
	IdempotencyKey  string
}

// CheckoutResult reports a settled checkout.
type CheckoutResult struct {
	OrderID    uuid.UUID
	InvoiceIDs []uuid.UUID
	Subtotal   int64
	Tax        int64
	Total      int64
	PaymentID  string
}

// TaxEstimate is the preview returned before checkout.
type TaxEstimate struct {
	SubtotalCents int64
	TaxCents      int64
	TotalCents    int64
	TaxRate       string
}

// EstimateTax previews tax and total for a subtotal and shipping state.
func (s *Service) EstimateTax(subtotalCents int64, stateCode string) TaxEstimate {
	taxCents := tax.CalculateTax(subtotalCents, stateCode)
	return TaxEstimate{
		SubtotalCents: subtotalCents,
		TaxCents:      taxCents,
		TotalCents:    subtotalCents + taxCents,
		TaxRate:       tax.GetTaxRate(stateCode).String(),
	}
}

// CreateOrderFromCart runs the checkout for the customer's current cart.
func (s *Service) CreateOrderFromCart(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.PaymentToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}

	ok, err := s.locker.AcquireLock(ctx, lockScope, customerID.String(), s.cfg.LockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another checkout is already in progress")
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.locker.ReleaseLock(releaseCtx, lockScope, customerID.String()); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "release checkout lock failed")
		}
	}()

	// Steps up to the stock check are pure validation; nothing is written
	// until every line has enough stock.
	customerCart, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(customerCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	listingIDs := make([]uuid.UUID, 0, len(customerCart.Items))
	for _, item := range customerCart.Items {
		listingIDs = append(listingIDs, item.ListingID)
	}
	liveListings, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings")
	}
	if err := checkStock(customerCart.Items, liveListings); err != nil {
		return nil, err
	}

	subtotal := customerCart.SubtotalCents()
	taxCents := tax.CalculateTax(subtotal, input.ShippingAddress.State)
	total := subtotal + taxCents

	idempotencyKey := input.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	intent, err := s.intents.Create(ctx, &models.CheckoutIntent{
		CustomerID:     customerID,
		Status:         enums.CheckoutIntentCreated,
		IdempotencyKey: idempotencyKey,
		AmountCents:    total,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout intent")
	}

	order, err := s.reserveStock(ctx, customerID, customerCart.Items, intent, subtotal, taxCents, total, input.ShippingAddress)
	if err != nil {
		if markErr := s.intents.MarkFailed(ctx, intent.ID, err.Error()); markErr != nil && s.logg != nil {
			s.logg.Error(ctx, "mark intent failed after reservation error", markErr)
		}
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()
	charge, err := s.gateway.Charge(chargeCtx, total, input.PaymentToken, customerID.String(), intent.ID.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The charge outcome is unknown; leave the reservation in place
			// for the reconciliation job to verify or refund.
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment status unknown, reconciliation pending")
		}
		s.unwindReservation(ctx, customerCart.Items, order.ID, intent.ID, customerID, err.Error())
		return nil, err
	}

	if err := s.intents.SetPaymentCaptured(ctx, intent.ID, charge.PaymentID); err != nil {
		if errors.Is(err, ErrIntentFinalized) {
			// A reconciler raced this checkout and already unwound the
			// reservation; the captured charge has no order behind it.
			if refundErr := s.gateway.Refund(ctx, charge.PaymentID, total, "checkout superseded by reconciliation"); refundErr != nil && s.logg != nil {
				s.logg.Error(ctx, "refund after finalized intent", refundErr)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout was reconciled concurrently")
		}
		// Payment is captured; reconciliation finishes from here.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment capture")
	}
	if err := s.orders.SetPaymentID(ctx, order.ID, charge.PaymentID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "record payment id on order", err)
	}

	invoiceIDs, err := s.issueInvoices(ctx, customerID, order, customerCart.Items, intent.ID, charge.PaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue invoices, reconciliation pending")
	}

	if err := s.finishIntent(ctx, intent.ID, order.ID, customerID, total); err != nil && s.logg != nil {
		s.logg.Error(ctx, "finish checkout intent", err)
	}

	return &CheckoutResult{
		OrderID:    order.ID,
		InvoiceIDs: invoiceIDs,
		Subtotal:   subtotal,
		Tax:        taxCents,
		Total:      total,
		PaymentID:  charge.PaymentID,
	}, nil
}

// reserveStock decrements every line's stock and persists the order and the
// stock_reserved marker in one transaction. Any shortfall rolls the whole
// reservation back.
func (s *Service) reserveStock(
	ctx context.Context,
	customerID uuid.UUID,
	items []models.CartItem,
	intent *models.CheckoutIntent,
	subtotal, taxCents, total int64,
	shipTo types.Address,
) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txListings := s.listings.WithTx(tx)
		for _, item := range items {
			ok, err := txListings.DecrementStock(ctx, item.ListingID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return outOfStockError(item, nil)
			}
		}

		addr := shipTo
		created, err := s.orders.WithTx(tx).Create(ctx, &models.Order{
			CustomerID:      customerID,
			ShippingAddress: &addr,
			SubtotalCents:   subtotal,
			TaxCents:        taxCents,
			TotalCents:      total,
		})
		if err != nil {
			return err
		}
		order = created

		txIntents := s.intents.WithTx(tx)
		if err := txIntents.SetStatus(ctx, intent.ID, enums.CheckoutIntentStockReserved); err != nil {
			return err
		}
		return txIntents.AttachOrder(ctx, intent.ID, order.ID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// unwindReservation restores stock and deletes the tentative order after a
// definitive payment failure.
func (s *Service) unwindReservation(ctx context.Context, items []models.CartItem, orderID, intentID, customerID uuid.UUID, reason string) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txListings := s.listings.WithTx(tx)
		for _, item := range items {
			if err := txListings.RestoreStock(ctx, item.ListingID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.orders.WithTx(tx).Delete(ctx, orderID); err != nil {
			return err
		}
		if err := s.intents.WithTx(tx).MarkFailed(ctx, intentID, reason); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutFailed,
			AggregateType: enums.AggregateCheckoutIntent,
			AggregateID:   intentID,
			Data: payloads.CheckoutFailedEvent{
				IntentID:   intentID,
				CustomerID: customerID,
				Reason:     reason,
			},
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "unwind reservation after payment failure", err)
	}
}

// issueInvoices cuts one invoice per vendor, clears the cart, and marks
// invoices_issued, all in one transaction. Every invoice snapshots the
// order's shipping address and the payment backing it.
func (s *Service) issueInvoices(ctx context.Context, customerID uuid.UUID, order *models.Order, items []models.CartItem, intentID uuid.UUID, paymentID string) ([]uuid.UUID, error) {
	groups, vendorOrder := groupByVendor(items)

	var invoiceIDs []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		invoiceIDs = invoiceIDs[:0]
		for _, vendorID := range vendorOrder {
			lines := make([]invoices.InvoiceLine, 0, len(groups[vendorID]))
			for _, item := range groups[vendorID] {
				lines = append(lines, invoices.InvoiceLine{
					ListingID:      item.ListingID,
					Quantity:       item.Quantity,
					UnitPriceCents: item.UnitPriceCents,
				})
			}
			created, err := s.invoices.CreateInvoiceTx(ctx, tx, invoices.CreateInvoiceInput{
				OrderID:    order.ID,
				CustomerID: customerID,
				VendorID:   vendorID,
				Lines:      lines,
				ShipTo:     order.ShippingAddress,
				PaymentID:  paymentID,
			})
			if err != nil {
				return err
			}
			invoiceIDs = append(invoiceIDs, created.ID)
		}

		if err := s.carts.ClearTx(ctx, tx, customerID); err != nil {
			return err
		}
		if err := s.intents.WithTx(tx).SetStatus(ctx, intentID, enums.CheckoutIntentInvoicesIssued); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: customerID,
				InvoiceIDs: invoiceIDs,
				TotalCents: order.TotalCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return invoiceIDs, nil
}

// finishIntent moves invoices_issued to complete and emits the settlement
// event.
func (s *Service) finishIntent(ctx context.Context, intentID, orderID, customerID uuid.UUID, total int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.intents.WithTx(tx).SetStatus(ctx, intentID, enums.CheckoutIntentComplete); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutCompleted,
			AggregateType: enums.AggregateCheckoutIntent,
			AggregateID:   intentID,
			Data: payloads.CheckoutCompletedEvent{
				IntentID:   intentID,
				OrderID:    orderID,
				CustomerID: customerID,
				TotalCents: total,
			},
		})
	})
}

// checkStock verifies every cart line against live stock before any
// mutation. All shortfalls are reported together.
func checkStock(items []models.CartItem, live map[uuid.UUID]models.Listing) error {
	type shortfall struct {
		ListingID uuid.UUID `json:"listing_id"`
		Title     string    `json:"title"`
		Requested int       `json:"requested"`
		Available int       `json:"available"`
	}
	var shortfalls []shortfall
	for _, item := range items {
		listing, ok := live[item.ListingID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("listing %s no longer exists", item.ListingID))
		}
		if listing.StockQty < item.Quantity {
			shortfalls = append(shortfalls, shortfall{
				ListingID: item.ListingID,
				Title:     item.TitleSnapshot,
				Requested: item.Quantity,
				Available: listing.StockQty,
			})
		}
	}
	if len(shortfalls) > 0 {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for one or more items").
			WithDetails(shortfalls)
	}
	return nil
}

func outOfStockError(item models.CartItem, details any) error {
	if details == nil {
		details = map[string]any{
			"listing_id": item.ListingID,
			"title":      item.TitleSnapshot,
			"requested":  item.Quantity,
		}
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock,
		fmt.Sprintf("insufficient stock for %q", item.TitleSnapshot)).WithDetails(details)
}

// groupByVendor splits cart items per vendor, preserving the order vendors
// first appear in the cart.
func groupByVendor(items []models.CartItem) (map[uuid.UUID][]models.CartItem, []uuid.UUID) {
	groups := make(map[uuid.UUID][]models.CartItem, len(items))
	var order []uuid.UUID
	for _, item := range items {
		if _, seen := groups[item.VendorID]; !seen {
			order = append(order, item.VendorID)
		}
		groups[item.VendorID] = append(groups[item.VendorID], item)
	}
	return groups, order
}

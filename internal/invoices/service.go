package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/outbox/payloads"
	"github.com/gamevault/gamevault-backend/pkg/pagination"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type balanceCreditor interface {
	CreditBalanceTx(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amountCents int64) error
}

type listingLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Listing, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who is driving an invoice mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service owns the invoice ledger: creation at checkout, the fulfillment
// state machine, and item ratings.
type Service struct {
	repo     *Repository
	tx       txRunner
	users    balanceCreditor
	listings listingLookup
	events   eventEmitter
	logg     *logger.Logger
}

// NewService builds an invoice service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, users balanceCreditor, listings listingLookup, events eventEmitter, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if users == nil {
		return nil, fmt.Errorf("balance creditor required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing lookup required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &Service{repo: repo, tx: tx, users: users, listings: listings, events: events, logg: logg}, nil
}

// InvoiceLine is one purchased listing inside a vendor's invoice.
type InvoiceLine struct {
	ListingID      uuid.UUID
	Quantity       int
	UnitPriceCents int64
}

// CreateInvoiceInput carries everything needed to cut one vendor invoice.
// ShipTo and PaymentID tie the vendor's fulfillment record to where the
// goods go and which charge funded them.
type CreateInvoiceInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	VendorID   uuid.UUID
	Lines      []InvoiceLine
	ShipTo     *types.Address
	PaymentID  string
}

// CreateInvoiceTx cuts a vendor invoice inside the caller's transaction.
// Item titles and descriptions are copied from the listing's current record
// while prices stay frozen from the cart. The vendor is credited the full
// subtotal immediately; a credit failure is logged and swallowed because the
// invoice itself is the source of truth.
func (s *Service) CreateInvoiceTx(ctx context.Context, tx *gorm.DB, input CreateInvoiceInput) (*models.Invoice, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice requires at least one line")
	}

	listingIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		listingIDs = append(listingIDs, line.ListingID)
	}

	titles, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings for invoice")
	}

	var subtotal int64
	items := make([]models.InvoiceItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		lineTotal := int64(line.Quantity) * line.UnitPriceCents
		subtotal += lineTotal

		title := ""
		var description *string
		if listing, ok := titles[line.ListingID]; ok {
			title = listing.Title
			description = listing.Description
		}
		items = append(items, models.InvoiceItem{
			ListingID:      line.ListingID,
			TitleSnapshot:  title,
			DescSnapshot:   description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: lineTotal,
		})
	}

	invoice := &models.Invoice{
		OrderID:       input.OrderID,
		CustomerID:    input.CustomerID,
		VendorID:      input.VendorID,
		Status:        enums.InvoiceStatusPending,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		ShipTo:        input.ShipTo,
		Items:         items,
	}
	if input.PaymentID != "" {
		paymentID := input.PaymentID
		invoice.PaymentID = &paymentID
	}

	txRepo := s.repo.WithTx(tx)
	created, err := txRepo.Create(ctx, invoice)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreditBalanceTx(ctx, tx, input.VendorID, subtotal); err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"invoice_id":   created.ID.String(),
				"vendor_id":    input.VendorID.String(),
				"amount_cents": subtotal,
			})
			s.logg.Error(logCtx, "vendor balance credit failed, invoice stands", err)
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventInvoiceCreated,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   created.ID,
		Data: payloads.InvoiceCreatedEvent{
			InvoiceID:  created.ID,
			OrderID:    input.OrderID,
			CustomerID: input.CustomerID,
			VendorID:   input.VendorID,
			TotalCents: created.TotalCents,
		},
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return created, nil
}

// SetStatus drives the invoice through the fulfillment state machine. An
// illegal jump fails with STATE_CONFLICT. The optional message lands in
// return_msg whichever transition it accompanies.
func (s *Service) SetStatus(ctx context.Context, actor Actor, invoiceID uuid.UUID, newStatus enums.InvoiceStatus, message *string) (*models.Invoice, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown invoice status %q", newStatus))
	}
	if newStatus == enums.InvoiceStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pending is assigned at creation only")
	}

	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}

	if err := authorizeTransition(actor, invoice, newStatus); err != nil {
		return nil, err
	}

	from := invoice.Status
	if !CanTransition(from, newStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move invoice from %s to %s", from, newStatus))
	}

	now := time.Now().UTC()
	invoice.Status = newStatus
	stampStatus(invoice, newStatus, now)
	if message != nil {
		invoice.ReturnMsg = message
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Save(ctx, invoice); err != nil {
			return err
		}

		actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
		statusEvent := outbox.DomainEvent{
			EventType:     enums.EventInvoiceStatusChanged,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Actor:         actorRef,
			Data: payloads.InvoiceStatusChangedEvent{
				InvoiceID: invoice.ID,
				VendorID:  invoice.VendorID,
				From:      from,
				To:        newStatus,
				ChangedAt: now,
			},
		}
		if err := s.events.Emit(ctx, tx, statusEvent); err != nil {
			return err
		}

		if newStatus == enums.InvoiceStatusPendingReturn && from == enums.InvoiceStatusCompleted {
			returnEvent := outbox.DomainEvent{
				EventType:     enums.EventReturnRequested,
				AggregateType: enums.AggregateInvoice,
				AggregateID:   invoice.ID,
				Actor:         actorRef,
				Data: payloads.ReturnRequestedEvent{
					InvoiceID:  invoice.ID,
					CustomerID: invoice.CustomerID,
					VendorID:   invoice.VendorID,
					Message:    stringValue(message),
				},
			}
			if err := s.events.Emit(ctx, tx, returnEvent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// RateInvoiceItem stores a 1-5 rating on a purchased line and queues the
// listing aggregate recompute. The caller does not wait for the recompute.
func (s *Service) RateInvoiceItem(ctx context.Context, customerID, invoiceID, itemID uuid.UUID, rating int) (*models.InvoiceItem, error) {
	if rating < 1 || rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}
	if invoice.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another customer")
	}

	item, err := s.repo.FindItem(ctx, invoiceID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice item not found")
		}
		return nil, err
	}

	now := time.Now().UTC()
	item.Rating = &rating
	item.RatedAt = &now

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.SaveItem(ctx, item); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventInvoiceItemRated,
			AggregateType: enums.AggregateListing,
			AggregateID:   item.ListingID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.InvoiceItemRatedEvent{
				InvoiceID:     invoiceID,
				InvoiceItemID: item.ID,
				ListingID:     item.ListingID,
				Rating:        rating,
			},
		}
		return s.events.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetForActor loads one invoice visible to the actor.
func (s *Service) GetForActor(ctx context.Context, actor Actor, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}
	if !actorCanRead(actor, invoice) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another account")
	}
	return invoice, nil
}

// ListForVendor pages through the vendor's invoices.
func (s *Service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Invoice, string, error) {
	return s.repo.ListByVendor(ctx, vendorID, params)
}

// ListForCustomer pages through the customer's invoices.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Invoice, string, error) {
	return s.repo.ListByCustomer(ctx, customerID, params)
}

// authorizeTransition keeps fulfillment moves with the owning vendor and
// return initiation with the owning customer. Admins may drive anything.
func authorizeTransition(actor Actor, invoice *models.Invoice, newStatus enums.InvoiceStatus) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if actor.Role == enums.UserRoleCustomer {
		if newStatus != enums.InvoiceStatusPendingReturn {
			return pkgerrors.New(pkgerrors.CodeForbidden, "customers may only request returns")
		}
		if invoice.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another customer")
		}
		return nil
	}
	if actor.Role == enums.UserRoleVendor {
		if invoice.VendorID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another vendor")
		}
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role may not mutate invoices")
}

func actorCanRead(actor Actor, invoice *models.Invoice) bool {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleVendor:
		return invoice.VendorID == actor.UserID
	case enums.UserRoleCustomer:
		return invoice.CustomerID == actor.UserID
	default:
		return false
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

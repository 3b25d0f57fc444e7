package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/api/middleware"
	"github.com/gamevault/gamevault-backend/api/responses"
	"github.com/gamevault/gamevault-backend/api/validators"
	invoicesvc "github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

type invoiceItemView struct {
	ID             uuid.UUID  `json:"id"`
	ListingID      uuid.UUID  `json:"listing_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
	Rating         *int       `json:"rating,omitempty"`
	RatedAt        *time.Time `json:"rated_at,omitempty"`
}

type invoiceView struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	Status        string    `json:"status"`
	Currency      string    `json:"currency"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
	TotalCents    int64     `json:"total_cents"`
	ReturnMsg     *string   `json:"return_msg,omitempty"`

	ShipTo    *types.Address `json:"ship_to,omitempty"`
	PaymentID *string        `json:"payment_id,omitempty"`

	DeclinedAt         *time.Time `json:"declined_at,omitempty"`
	AwaitingShipmentAt *time.Time `json:"awaiting_shipment_at,omitempty"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	PendingReturnAt    *time.Time `json:"pending_return_at,omitempty"`
	AwaitingReturnAt   *time.Time `json:"awaiting_return_at,omitempty"`

	Items     []invoiceItemView `json:"items,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type invoiceListResponse struct {
	Invoices   []invoiceView `json:"invoices"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type invoiceReturnRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type invoiceStatusRequest struct {
	Status  string  `json:"status" validate:"required"`
	Message *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

type rateItemRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
}

func newInvoiceView(invoice models.Invoice) invoiceView {
	items := make([]invoiceItemView, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, invoiceItemView{
			ID:             item.ID,
			ListingID:      item.ListingID,
			Title:          item.TitleSnapshot,
			Description:    item.DescSnapshot,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			Rating:         item.Rating,
			RatedAt:        item.RatedAt,
		})
	}
	return invoiceView{
		ID:                 invoice.ID,
		OrderID:            invoice.OrderID,
		CustomerID:         invoice.CustomerID,
		VendorID:           invoice.VendorID,
		Status:             string(invoice.Status),
		Currency:           string(invoice.Currency),
		SubtotalCents:      invoice.SubtotalCents,
		TaxCents:           invoice.TaxCents,
		TotalCents:         invoice.TotalCents,
		ReturnMsg:          invoice.ReturnMsg,
		ShipTo:             invoice.ShipTo,
		PaymentID:          invoice.PaymentID,
		DeclinedAt:         invoice.DeclinedAt,
		AwaitingShipmentAt: invoice.AwaitingShipmentAt,
		ShippedAt:          invoice.ShippedAt,
		CompletedAt:        invoice.CompletedAt,
		CancelledAt:        invoice.CancelledAt,
		PendingReturnAt:    invoice.PendingReturnAt,
		AwaitingReturnAt:   invoice.AwaitingReturnAt,
		Items:              items,
		CreatedAt:          invoice.CreatedAt,
	}
}

func invoiceActor(r *http.Request) (invoicesvc.Actor, error) {
	userID, err := actorID(r)
	if err != nil {
		return invoicesvc.Actor{}, err
	}
	return invoicesvc.Actor{
		UserID: userID,
		Role:   middleware.RoleFromContext(r.Context()),
	}, nil
}

// InvoiceDetail returns one invoice for its customer, vendor, or an admin.
func InvoiceDetail(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := invoiceActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := parseUUIDParam(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.GetForActor(r.Context(), actor, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newInvoiceView(*invoice))
	}
}

// InvoiceReturn starts the return loop on a completed invoice. Customer only.
func InvoiceReturn(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := invoiceActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := parseUUIDParam(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body invoiceReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.SetStatus(r.Context(), actor, invoiceID, enums.InvoiceStatusPendingReturn, &body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newInvoiceView(*invoice))
	}
}

// InvoiceItemRate records a 1-5 rating on a purchased line. The listing
// aggregate catches up asynchronously.
func InvoiceItemRate(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RateInvoiceItem(r.Context(), customerID, body.InvoiceID, itemID, body.Rating)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoiceItemView{
			ID:             item.ID,
			ListingID:      item.ListingID,
			Title:          item.TitleSnapshot,
			Description:    item.DescSnapshot,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			Rating:         item.Rating,
			RatedAt:        item.RatedAt,
		})
	}
}

// VendorInvoiceList pages through the vendor's invoices, newest first.
func VendorInvoiceList(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoices, nextCursor, err := svc.ListForVendor(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor invoices"))
			return
		}

		views := make([]invoiceView, 0, len(invoices))
		for _, invoice := range invoices {
			views = append(views, newInvoiceView(invoice))
		}
		responses.WriteSuccess(w, invoiceListResponse{Invoices: views, NextCursor: nextCursor})
	}
}

// VendorInvoiceStatus advances an invoice through the fulfillment machine.
func VendorInvoiceStatus(svc *invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := invoiceActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoiceID, err := parseUUIDParam(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body invoiceStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseInvoiceStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		invoice, err := svc.SetStatus(r.Context(), actor, invoiceID, status, body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newInvoiceView(*invoice))
	}
}

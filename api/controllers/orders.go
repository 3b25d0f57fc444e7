package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/api/responses"
	"github.com/gamevault/gamevault-backend/api/validators"
	ordersrepo "github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/pagination"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

type orderView struct {
	ID              uuid.UUID      `json:"id"`
	Currency        string         `json:"currency"`
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	TotalCents      int64          `json:"total_cents"`
	PaymentID       *string        `json:"payment_id,omitempty"`
	Invoices        []invoiceView  `json:"invoices,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func newOrderView(order models.Order, includeInvoices bool) orderView {
	view := orderView{
		ID:              order.ID,
		Currency:        string(order.Currency),
		ShippingAddress: order.ShippingAddress,
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		TotalCents:      order.TotalCents,
		PaymentID:       order.PaymentID,
		CreatedAt:       order.CreatedAt,
	}
	if includeInvoices {
		view.Invoices = make([]invoiceView, 0, len(order.Invoices))
		for _, invoice := range order.Invoices {
			view.Invoices = append(view.Invoices, newInvoiceView(invoice))
		}
	}
	return view
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// OrderList pages through the customer's order history, newest first.
func OrderList(repo *ordersrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, nextCursor, err := repo.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders"))
			return
		}

		views := make([]orderView, 0, len(orders))
		for _, order := range orders {
			views = append(views, newOrderView(order, false))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: views, NextCursor: nextCursor})
	}
}

// OrderDetail returns one order with its invoices, owner only.
func OrderDetail(repo *ordersrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := repo.FindByID(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch order"))
			return
		}
		if order.CustomerID != customerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		responses.WriteSuccess(w, newOrderView(*order, true))
	}
}

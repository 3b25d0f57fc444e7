package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/api/responses"
	"github.com/gamevault/gamevault-backend/api/validators"
	checkoutsvc "github.com/gamevault/gamevault-backend/internal/checkout"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

type checkoutRequest struct {
	PaymentToken    string        `json:"payment_token" validate:"required"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

type checkoutResponse struct {
	OrderID       uuid.UUID   `json:"order_id"`
	InvoiceIDs    []uuid.UUID `json:"invoice_ids"`
	SubtotalCents int64       `json:"subtotal_cents"`
	TaxCents      int64       `json:"tax_cents"`
	TotalCents    int64       `json:"total_cents"`
	PaymentID     string      `json:"payment_id,omitempty"`
}

type estimateTaxRequest struct {
	SubtotalCents int64  `json:"subtotal_cents" validate:"required,gt=0"`
	State         string `json:"state" validate:"required"`
}

type estimateTaxResponse struct {
	SubtotalCents int64  `json:"subtotal_cents"`
	TaxCents      int64  `json:"tax_cents"`
	TotalCents    int64  `json:"total_cents"`
	TaxRate       string `json:"tax_rate"`
}

// Checkout settles the customer's cart into an order plus per-vendor invoices.
func Checkout(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrderFromCart(r.Context(), customerID, checkoutsvc.CheckoutInput{
			PaymentToken:    body.PaymentToken,
			ShippingAddress: body.ShippingAddress,
			IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:       result.OrderID,
			InvoiceIDs:    result.InvoiceIDs,
			SubtotalCents: result.Subtotal,
			TaxCents:      result.Tax,
			TotalCents:    result.Total,
			PaymentID:     result.PaymentID,
		})
	}
}

// EstimateTax previews tax for a subtotal shipped to a US state. Public.
func EstimateTax(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body estimateTaxRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		estimate := svc.EstimateTax(body.SubtotalCents, body.State)
		responses.WriteSuccess(w, estimateTaxResponse{
			SubtotalCents: estimate.SubtotalCents,
			TaxCents:      estimate.TaxCents,
			TotalCents:    estimate.TotalCents,
			TaxRate:       estimate.TaxRate,
		})
	}
}

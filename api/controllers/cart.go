package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/api/responses"
	"github.com/gamevault/gamevault-backend/api/validators"
	cartsvc "github.com/gamevault/gamevault-backend/internal/cart"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/logger"
)

type addCartItemRequest struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemView struct {
	ID                uuid.UUID `json:"id"`
	ListingID         uuid.UUID `json:"listing_id"`
	VendorID          uuid.UUID `json:"vendor_id"`
	VendorName        string    `json:"vendor_name"`
	Title             string    `json:"title"`
	Thumbnail         *string   `json:"thumbnail,omitempty"`
	Quantity          int       `json:"quantity"`
	UnitPriceCents    int64     `json:"unit_price_cents"`
	LineSubtotalCents int64     `json:"line_subtotal_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

type cartView struct {
	ID            uuid.UUID      `json:"id"`
	Currency      string         `json:"currency"`
	Items         []cartItemView `json:"items"`
	SubtotalCents int64          `json:"subtotal_cents"`
}

func newCartView(cart *models.Cart) cartView {
	items := make([]cartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, newCartItemView(item))
	}
	return cartView{
		ID:            cart.ID,
		Currency:      string(cart.Currency),
		Items:         items,
		SubtotalCents: cart.SubtotalCents(),
	}
}

func newCartItemView(item models.CartItem) cartItemView {
	return cartItemView{
		ID:                item.ID,
		ListingID:         item.ListingID,
		VendorID:          item.VendorID,
		VendorName:        item.VendorNameSnapshot,
		Title:             item.TitleSnapshot,
		Thumbnail:         item.ThumbnailSnapshot,
		Quantity:          item.Quantity,
		UnitPriceCents:    item.UnitPriceCents,
		LineSubtotalCents: item.LineSubtotalCents(),
		CreatedAt:         item.CreatedAt,
	}
}

// CartFetch returns the customer's cart, creating an empty one on first use.
func CartFetch(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.GetOrCreate(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(cart))
	}
}

// CartAddItem appends a listing line, accumulating quantity onto an existing
// line for the same listing.
func CartAddItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddItem(r.Context(), customerID, cartsvc.AddItemInput{
			ListingID: body.ListingID,
			Quantity:  body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartItemView(*item))
	}
}

// CartUpdateItem sets a line's quantity; zero or below removes the line.
func CartUpdateItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateQuantity(r.Context(), customerID, itemID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartItemView(*item))
	}
}

// CartRemoveItem deletes a line. Removing an absent line succeeds.
func CartRemoveItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.RemoveItem(r.Context(), customerID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CartClear empties the cart.
func CartClear(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

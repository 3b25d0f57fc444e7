package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/api/responses"
	listingsrepo "github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
)

type listingView struct {
	ID            uuid.UUID `json:"id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	Title         string    `json:"title"`
	Platform      string    `json:"platform"`
	Description   *string   `json:"description,omitempty"`
	ThumbnailURL  *string   `json:"thumbnail_url,omitempty"`
	PriceCents    int64     `json:"price_cents"`
	StockQty      int       `json:"stock_qty"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int64     `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type listingListResponse struct {
	Listings   []listingView `json:"listings"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newListingView(listing models.Listing) listingView {
	return listingView{
		ID:            listing.ID,
		VendorID:      listing.VendorID,
		Title:         listing.Title,
		Platform:      listing.Platform,
		Description:   listing.Description,
		ThumbnailURL:  listing.ThumbnailURL,
		PriceCents:    listing.PriceCents,
		StockQty:      listing.StockQty,
		RatingAverage: listing.RatingAverage(),
		RatingCount:   listing.RatingCount,
		CreatedAt:     listing.CreatedAt,
	}
}

// ListingBrowse pages through active listings, newest first. Public.
func ListingBrowse(repo *listingsrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, nextCursor, err := repo.ListActive(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings"))
			return
		}

		views := make([]listingView, 0, len(listings))
		for _, listing := range listings {
			views = append(views, newListingView(listing))
		}
		responses.WriteSuccess(w, listingListResponse{Listings: views, NextCursor: nextCursor})
	}
}

// ListingDetail returns one listing. Public.
func ListingDetail(repo *listingsrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := parseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := repo.FindByID(r.Context(), listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch listing"))
			return
		}

		responses.WriteSuccess(w, newListingView(*listing))
	}
}

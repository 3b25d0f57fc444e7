package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	pkgredis "github.com/gamevault/gamevault-backend/pkg/redis"
)

const (
	lockScope = "cart"
	lockTTL   = 15 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// Service serializes cart mutations per customer and keeps price snapshots
// frozen at first add.
type Service struct {
	repo     *Repository
	tx       txRunner
	listings listingLoader
	locker   pkgredis.Locker
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, listings listingLoader, locker pkgredis.Locker, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	return &Service{repo: repo, tx: tx, listings: listings, locker: locker, logg: logg}, nil
}

// AddItemInput carries the customer's add-to-cart request.
type AddItemInput struct {
	ListingID uuid.UUID
	Quantity  int
}

// GetOrCreate loads the customer's cart, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, customerID)
	if err != nil {
		// Two first requests can race past the lookup; the unique index on
		// customer_id decides the winner and the loser re-reads.
		if lookup, lookupErr := s.repo.FindByCustomer(ctx, customerID); lookupErr == nil {
			return lookup, nil
		}
		return nil, err
	}
	return created, nil
}

// AddItem appends a listing to the cart or accumulates quantity onto the
// existing line. The unit price is captured from the listing only when the
// line is first created.
func (s *Service) AddItem(ctx context.Context, customerID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	unlock, err := s.acquire(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, err
	}
	if !listing.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing is not available")
	}

	vendorName, err := s.repo.VendorName(ctx, listing.VendorID)
	if err != nil {
		return nil, err
	}

	var saved *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindItemByListing(ctx, cart.ID, input.ListingID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			if err := txRepo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity); err != nil {
				return err
			}
			existing.Quantity += input.Quantity
			saved = existing
			return nil
		}

		item := &models.CartItem{
			CartID:             cart.ID,
			ListingID:          listing.ID,
			VendorID:           listing.VendorID,
			VendorNameSnapshot: vendorName,
			TitleSnapshot:      listing.Title,
			ThumbnailSnapshot:  listing.ThumbnailURL,
			Quantity:           input.Quantity,
			UnitPriceCents:     listing.PriceCents,
		}
		created, err := txRepo.CreateItem(ctx, item)
		if err != nil {
			return err
		}
		saved = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UpdateQuantity sets a new quantity on a cart line. A non-positive quantity
// removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}

	unlock, err := s.acquire(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
			return nil, err
		}
		item.Quantity = 0
		return item, nil
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

// RemoveItem deletes a cart line. Removing an absent line succeeds.
func (s *Service) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) error {
	unlock, err := s.acquire(ctx, customerID)
	if err != nil {
		return err
	}
	defer unlock()

	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, cart.ID, itemID)
}

// Clear empties the customer's cart.
func (s *Service) Clear(ctx context.Context, customerID uuid.UUID) error {
	unlock, err := s.acquire(ctx, customerID)
	if err != nil {
		return err
	}
	defer unlock()

	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return err
	}
	return s.repo.DeleteItems(ctx, cart.ID)
}

// ClearTx empties the cart inside the caller's transaction. Checkout holds
// its own customer lock, so no lock is taken here.
func (s *Service) ClearTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	cart, err := s.repo.WithTx(tx).FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.repo.WithTx(tx).DeleteItems(ctx, cart.ID)
}

func (s *Service) acquire(ctx context.Context, customerID uuid.UUID) (func(), error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	ok, err := s.locker.AcquireLock(ctx, lockScope, customerID.String(), lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being modified by another request")
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockScope, customerID.String()); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "release cart lock failed")
		}
	}, nil
}

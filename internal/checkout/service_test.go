package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/internal/cart"
	"github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/internal/users"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/types"
)

type txAdapter struct {
	db *gorm.DB
}

func (a txAdapter) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return a.db.WithContext(ctx).Transaction(fn)
}

type stubLocker struct{}

func (stubLocker) AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (stubLocker) ReleaseLock(ctx context.Context, scope, id string) error {
	return nil
}

type stubGateway struct {
	chargeErr    error
	paymentID    string
	onCharge     func()
	charges      int
	refunds      int
	verifies     int
	verifyStatus string
	findResult   ChargeResult
	findFound    bool
	finds        int
}

func (g *stubGateway) Charge(ctx context.Context, amountCents int64, sourceToken, customerRef, orderRef string) (ChargeResult, error) {
	g.charges++
	if g.onCharge != nil {
		g.onCharge()
	}
	if g.chargeErr != nil {
		return ChargeResult{}, g.chargeErr
	}
	return ChargeResult{PaymentID: g.paymentID, Status: "COMPLETED"}, nil
}

func (g *stubGateway) Refund(ctx context.Context, paymentID string, amountCents int64, reason string) error {
	g.refunds++
	return nil
}

func (g *stubGateway) Verify(ctx context.Context, paymentID string) (ChargeResult, error) {
	g.verifies++
	status := g.verifyStatus
	if status == "" {
		status = "COMPLETED"
	}
	return ChargeResult{PaymentID: paymentID, Status: status}, nil
}

func (g *stubGateway) FindByReference(ctx context.Context, reference string, since time.Time) (ChargeResult, bool, error) {
	g.finds++
	return g.findResult, g.findFound, nil
}

type checkoutStack struct {
	db       *gorm.DB
	carts    *cart.Service
	svc      *Service
	gateway  *stubGateway
	intents  *IntentRepository
	orders   *orders.Repository
	listings *listings.Repository
}

func newCheckoutStack(t *testing.T) *checkoutStack {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.CheckoutIntent{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tx := txAdapter{db: db}
	listingRepo := listings.NewRepository(db)
	events := outbox.NewService(outbox.NewRepository(db), nil)

	cartSvc, err := cart.NewService(cart.NewRepository(db), tx, listingRepo, stubLocker{}, nil)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	invoiceSvc, err := invoices.NewService(invoices.NewRepository(db), tx, users.NewRepository(db), listingRepo, events, nil)
	if err != nil {
		t.Fatalf("invoice service: %v", err)
	}

	gateway := &stubGateway{paymentID: "sq_pay_" + uuid.NewString()}
	intents := NewIntentRepository(db)
	orderRepo := orders.NewRepository(db)
	svc, err := NewService(cartSvc, listingRepo, orderRepo, intents, invoiceSvc, tx, gateway, stubLocker{}, events, nil, config.CheckoutConfig{
		PaymentTimeout:    5 * time.Second,
		LockTTL:           time.Minute,
		ReserveStaleAfter: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	return &checkoutStack{
		db:       db,
		carts:    cartSvc,
		svc:      svc,
		gateway:  gateway,
		intents:  intents,
		orders:   orderRepo,
		listings: listingRepo,
	}
}

func seedVendor(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	vendor := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		DisplayName:  name,
		Role:         enums.UserRoleVendor,
		IsActive:     true,
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return vendor
}

func seedListing(t *testing.T, db *gorm.DB, vendorID uuid.UUID, title string, price int64, stock int) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:         uuid.New(),
		VendorID:   vendorID,
		Title:      title,
		Platform:   "PC",
		PriceCents: price,
		StockQty:   stock,
		IsActive:   true,
	}
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func texasAddress() types.Address {
	return types.Address{
		Line1:      "500 Congress Ave",
		City:       "Austin",
		State:      "TX",
		PostalCode: "78701",
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	stack := newCheckoutStack(t)

	_, err := stack.svc.CreateOrderFromCart(context.Background(), uuid.New(), CheckoutInput{
		PaymentToken:    "cnon:card-ok",
		ShippingAddress: texasAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}
	if stack.gateway.charges != 0 {
		t.Fatal("empty cart must never reach the payment gateway")
	}

	var orderCount int64
	if err := stack.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no persisted orders, got %d", orderCount)
	}
}

func TestCheckoutOutOfStockIsAllOrNothing(t *testing.T) {
	stack := newCheckoutStack(t)
	ctx := context.Background()
	customerID := uuid.New()

	vendor := seedVendor(t, stack.db, "Vendor One")
	plenty := seedListing(t, stack.db, vendor.ID, "Plenty", 1000, 10)
	scarce := seedListing(t, stack.db, vendor.ID, "Scarce", 500, 1)

	mustAdd(t, stack.carts, ctx, customerID, plenty.ID, 2)
	mustAdd(t, stack.carts, ctx, customerID, scarce.ID, 3)

	_, err := stack.svc.CreateOrderFromCart(ctx, customerID, CheckoutInput{
		PaymentToken:    "cnon:card-ok",
		ShippingAddress: texasAddress(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected out of stock, got %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("expected shortfall details on the error")
	}
	if stack.gateway.charges != 0 {
		t.Fatal("payment must not run when stock is short")
	}

	// No listing may lose stock, including the one that had enough.
	for _, tc := range []struct {
		id   uuid.UUID
		want int
	}{{plenty.ID, 10}, {scarce.ID, 1}} {
		listing, err := stack.listings.FindByID(ctx, tc.id)
		if err != nil {
			t.Fatalf("reload listing: %v", err)
		}
		if listing.StockQty != tc.want {
			t.Fatalf("expected stock %d, got %d", tc.want, listing.StockQty)
		}
	}
}

func TestCheckoutMultiVendorSplit(t *testing.T) {
	stack := newCheckoutStack(t)
	ctx := context.Background()
	customerID := uuid.New()

	vendorOne := seedVendor(t, stack.db, "Vendor One")
	vendorTwo := seedVendor(t, stack.db, "Vendor Two")
	listingA := seedListing(t, stack.db, vendorOne.ID, "Listing A", 1000, 5)
	listingB := seedListing(t, stack.db, vendorTwo.ID, "Listing B", 500, 5)
	if err := stack.db.Model(&models.Listing{}).Where("id = ?", listingA.ID).
		UpdateColumn("description", "Co-op space opera").Error; err != nil {
		t.Fatalf("describe listing: %v", err)
	}

	mustAdd(t, stack.carts, ctx, customerID, listingA.ID, 2)
	mustAdd(t, stack.carts, ctx, customerID, listingB.ID, 1)

	result, err := stack.svc.CreateOrderFromCart(ctx, customerID, CheckoutInput{
		PaymentToken:    "cnon:card-ok",
		ShippingAddress: texasAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.Subtotal != 2500 {
		t.Fatalf("expected subtotal 2500, got %d", result.Subtotal)
	}
	if result.Tax != 157 {
		t.Fatalf("expected tax 157, got %d", result.Tax)
	}
	if result.Total != 2657 {
		t.Fatalf("expected total 2657, got %d", result.Total)
	}
	if len(result.InvoiceIDs) != 2 {
		t.Fatalf("expected one invoice per vendor, got %d", len(result.InvoiceIDs))
	}

	var invoiceRows []models.Invoice
	if err := stack.db.Order("created_at ASC").Find(&invoiceRows).Error; err != nil {
		t.Fatalf("load invoices: %v", err)
	}
	subtotals := map[uuid.UUID]int64{}
	var sum int64
	for _, inv := range invoiceRows {
		subtotals[inv.VendorID] = inv.SubtotalCents
		sum += inv.SubtotalCents
		if inv.PaymentID == nil || *inv.PaymentID != result.PaymentID {
			t.Fatalf("expected payment reference %q on invoice, got %v", result.PaymentID, inv.PaymentID)
		}
		if inv.ShipTo == nil || inv.ShipTo.State != "TX" {
			t.Fatalf("expected shipping snapshot on invoice, got %+v", inv.ShipTo)
		}
	}

	var lineA models.InvoiceItem
	if err := stack.db.First(&lineA, "listing_id = ?", listingA.ID).Error; err != nil {
		t.Fatalf("load invoice item: %v", err)
	}
	if lineA.DescSnapshot == nil || *lineA.DescSnapshot != "Co-op space opera" {
		t.Fatalf("expected description snapshot on invoice item, got %v", lineA.DescSnapshot)
	}
	if subtotals[vendorOne.ID] != 2000 || subtotals[vendorTwo.ID] != 500 {
		t.Fatalf("unexpected invoice split: %+v", subtotals)
	}
	if sum != result.Subtotal {
		t.Fatalf("invoice subtotals %d must sum to order subtotal %d", sum, result.Subtotal)
	}

	for _, tc := range []struct {
		vendorID uuid.UUID
		want     int64
	}{{vendorOne.ID, 2000}, {vendorTwo.ID, 500}} {
		var vendor models.User
		if err := stack.db.First(&vendor, "id = ?", tc.vendorID).Error; err != nil {
			t.Fatalf("reload vendor: %v", err)
		}
		if vendor.BalanceCents != tc.want {
			t.Fatalf("expected vendor balance %d, got %d", tc.want, vendor.BalanceCents)
		}
	}

	// Stock decremented, cart cleared, intent settled.
	reloadedA, _ := stack.listings.FindByID(ctx, listingA.ID)
	if reloadedA.StockQty != 3 {
		t.Fatalf("expected stock 3 after checkout, got %d", reloadedA.StockQty)
	}
	currentCart, err := stack.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(currentCart.Items) != 0 {
		t.Fatalf("expected cleared cart, got %d items", len(currentCart.Items))
	}

	var intent models.CheckoutIntent
	if err := stack.db.First(&intent, "customer_id = ?", customerID).Error; err != nil {
		t.Fatalf("load intent: %v", err)
	}
	if intent.Status != enums.CheckoutIntentComplete {
		t.Fatalf("expected complete intent, got %s", intent.Status)
	}
	if intent.PaymentID == nil || *intent.PaymentID != result.PaymentID {
		t.Fatalf("expected payment id on intent, got %v", intent.PaymentID)
	}
	if intent.OrderID == nil || *intent.OrderID != result.OrderID {
		t.Fatalf("expected order id on intent, got %v", intent.OrderID)
	}
}

func TestCheckoutPaymentFailureUnwinds(t *testing.T) {
	stack := newCheckoutStack(t)
	ctx := context.Background()
	customerID := uuid.New()

	vendor := seedVendor(t, stack.db, "Vendor One")
	listing := seedListing(t, stack.db, vendor.ID, "Listing A", 1000, 5)
	mustAdd(t, stack.carts, ctx, customerID, listing.ID, 2)

	stack.gateway.chargeErr = pkgerrors.New(pkgerrors.CodePaymentFailure, "payment not completed: FAILED")

	_, err := stack.svc.CreateOrderFromCart(ctx, customerID, CheckoutInput{
		PaymentToken:    "cnon:card-declined",
		ShippingAddress: texasAddress(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentFailure {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if typed.Message() != "payment not completed: FAILED" {
		t.Fatalf("provider reason must pass through verbatim, got %q", typed.Message())
	}

	// Compensation: stock restored, order gone, no invoices, intent failed.
	reloaded, _ := stack.listings.FindByID(ctx, listing.ID)
	if reloaded.StockQty != 5 {
		t.Fatalf("expected stock restored to 5, got %d", reloaded.StockQty)
	}
	var orderCount, invoiceCount int64
	stack.db.Model(&models.Order{}).Count(&orderCount)
	stack.db.Model(&models.Invoice{}).Count(&invoiceCount)
	if orderCount != 0 || invoiceCount != 0 {
		t.Fatalf("expected no orders or invoices, got %d/%d", orderCount, invoiceCount)
	}

	var intent models.CheckoutIntent
	if err := stack.db.First(&intent, "customer_id = ?", customerID).Error; err != nil {
		t.Fatalf("load intent: %v", err)
	}
	if intent.Status != enums.CheckoutIntentFailed {
		t.Fatalf("expected failed intent, got %s", intent.Status)
	}
	if intent.LastError == nil || *intent.LastError == "" {
		t.Fatal("expected failure reason recorded on intent")
	}

	// The cart survives a failed checkout so the customer can retry.
	currentCart, err := stack.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(currentCart.Items) != 1 {
		t.Fatalf("expected cart kept after payment failure, got %d items", len(currentCart.Items))
	}
}

func TestEstimateTax(t *testing.T) {
	stack := newCheckoutStack(t)

	estimate := stack.svc.EstimateTax(2500, "TX")
	if estimate.TaxCents != 157 || estimate.TotalCents != 2657 {
		t.Fatalf("unexpected estimate: %+v", estimate)
	}

	unknown := stack.svc.EstimateTax(2500, "??")
	if unknown.TaxCents != 0 || unknown.TotalCents != 2500 {
		t.Fatalf("unknown state must be tax free: %+v", unknown)
	}
}

func mustAdd(t *testing.T, svc *cart.Service, ctx context.Context, customerID, listingID uuid.UUID, qty int) {
	t.Helper()
	if _, err := svc.AddItem(ctx, customerID, cart.AddItemInput{ListingID: listingID, Quantity: qty}); err != nil {
		t.Fatalf("add item: %v", err)
	}
}

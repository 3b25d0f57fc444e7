package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamevault/gamevault-backend/api/controllers"
	"github.com/gamevault/gamevault-backend/api/middleware"
	authsvc "github.com/gamevault/gamevault-backend/internal/auth"
	cartsvc "github.com/gamevault/gamevault-backend/internal/cart"
	checkoutsvc "github.com/gamevault/gamevault-backend/internal/checkout"
	invoicesvc "github.com/gamevault/gamevault-backend/internal/invoices"
	"github.com/gamevault/gamevault-backend/internal/listings"
	"github.com/gamevault/gamevault-backend/internal/orders"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	pkgredis "github.com/gamevault/gamevault-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       pkgredis.Pinger
	Idempotency pkgredis.IdempotencyStore
	Auth        *authsvc.Service
	Cart        *cartsvc.Service
	Checkout    *checkoutsvc.Service
	Invoices    *invoicesvc.Service
	Listings    *listings.Repository
	Orders      *orders.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/checkout/estimate-tax", controllers.EstimateTax(deps.Checkout, logg))
		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.ListingBrowse(deps.Listings, logg))
			r.Get("/{listingId}", controllers.ListingDetail(deps.Listings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/{invoiceId}", controllers.InvoiceDetail(deps.Invoices, logg))
				r.Post("/{invoiceId}/return", controllers.InvoiceReturn(deps.Invoices, logg))
				r.Post("/items/{itemId}/rating", controllers.InvoiceItemRate(deps.Invoices, logg))
			})

			r.Route("/vendor", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleVendor))
				r.Get("/invoices", controllers.VendorInvoiceList(deps.Invoices, logg))
				r.Post("/invoices/{invoiceId}/status", controllers.VendorInvoiceStatus(deps.Invoices, logg))
			})
		})
	})

	return r
}

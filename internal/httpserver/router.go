package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/checkout"
	"storefront-cart/internal/session"
	"storefront-cart/internal/telemetry"
)

type VendorResolver interface {
	Resolve(ctx context.Context, ref string) (*domain.Vendor, error)
}

type IdentityService interface {
	GetOrCreate(ctx context.Context, providers ...devicestore.Store) string
}

type SessionRegistry interface {
	Get(ctx context.Context, vendorID, customerID string) *session.Session
}

type ProfileService interface {
	Fetch(ctx context.Context, customerID string, device devicestore.Store) (*domain.CustomerProfile, error)
	Save(ctx context.Context, customerID string, fields domain.ProfileFields, device devicestore.Store) (*domain.CustomerProfile, error)
}

type CheckoutService interface {
	Finalize(ctx context.Context, in checkout.Input) (*checkout.Result, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID string, filter orderrepo.ListFilter) ([]domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	HandoffLink(ctx context.Context, orderID string) (string, error)
}

// Deps carries the services the router dispatches to.
type Deps struct {
	Vendors  VendorResolver
	Identity IdentityService
	Sessions SessionRegistry
	Profiles ProfileService
	Checkout CheckoutService
	// Device is the shared slot backend; requests outside a vendor session use the
	// customer's namespace in it.
	Device      devicestore.Store
	Sink        telemetry.Sink
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Vendors == nil:
		return errors.New("httpserver: vendor resolver required")
	case d.Identity == nil:
		return errors.New("httpserver: identity service required")
	case d.Sessions == nil:
		return errors.New("httpserver: session registry required")
	case d.Profiles == nil:
		return errors.New("httpserver: profile service required")
	case d.Checkout == nil:
		return errors.New("httpserver: checkout service required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *slog.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Device == nil {
		deps.Device = devicestore.NewMemory()
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.Discard
	}

	router := gin.New()
	router.Use(
		gin.LoggerWithWriter(slog.NewLogLogger(logger.Handler(), slog.LevelInfo).Writer()),
		gin.Recovery(),
		cors.New(corsConfig(deps.CORSOrigins)),
	)

	h := &handlers{deps: deps, logger: logger}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps))

	router.GET("/orders/:id", h.getOrder)
	router.GET("/orders/:id/handoff", h.handoff)
	// Status changes are a vendor action. This service does no vendor auth; the route is
	// expected to be exposed only behind the vendor dashboard's authenticating proxy.
	router.PATCH("/orders/:id/status", h.setOrderStatus)

	shopper := router.Group("", identityMiddleware(deps.Identity))
	shopper.GET("/profile", h.getProfile)
	shopper.PUT("/profile", h.saveProfile)
	shopper.GET("/me/orders", h.listOrders)

	vendor := shopper.Group("/vendors/:vendor", vendorMiddleware(deps.Vendors))
	vendor.POST("/session", h.startSession)
	vendor.POST("/session/loaded", h.pageLoaded)
	vendor.GET("/cart", h.getCart)
	vendor.POST("/cart/items", h.addItem)
	vendor.PUT("/cart/items/:product", h.setQuantity)
	vendor.DELETE("/cart/items/:product", h.removeItem)
	vendor.POST("/recovery/resume", h.resumeDraft)
	vendor.POST("/recovery/discard", h.discardDraft)
	vendor.POST("/checkout", h.checkout)
	vendor.POST("/events", h.trackEvent)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", customerHeader},
		ExposeHeaders:    []string{customerHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

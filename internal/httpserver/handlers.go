package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/checkout"
	"storefront-cart/internal/service/recovery"
	"storefront-cart/internal/session"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handlers) session(c *gin.Context) *session.Session {
	return h.deps.Sessions.Get(c.Request.Context(), vendorFrom(c).ID, customerFrom(c))
}

func (h *handlers) device(c *gin.Context) devicestore.Store {
	return devicestore.ForCustomer(h.deps.Device, customerFrom(c))
}

// startSession is called on every storefront page load. It queues the store view until
// the page reports it has loaded and runs recovery detection.
func (h *handlers) startSession(c *gin.Context) {
	ctx := c.Request.Context()
	v := vendorFrom(c)
	s := h.session(c)

	s.Views.Reset()
	s.Views.Track(domain.NewEvent(v.ID, domain.StoreView{}))
	s.Recovery.Start(ctx, v.ID, s.CustomerID)

	c.JSON(http.StatusOK, sessionResponse{
		CustomerID: s.CustomerID,
		Vendor:     toVendorResponse(v),
		Cart:       toCartResponse(s.Cart.Snapshot()),
		Recovery:   toRecoveryResponse(s.Recovery),
	})
}

func (h *handlers) pageLoaded(c *gin.Context) {
	h.session(c).Views.MarkLoaded()
	c.Status(http.StatusNoContent)
}

func (h *handlers) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(h.session(c).Cart.Snapshot()))
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
		return
	}
	snap := h.session(c).Cart.Add(c.Request.Context(), domain.LineItem{
		ProductID:      req.ProductID,
		Name:           req.Name,
		UnitPriceCents: req.UnitPriceCents,
		ImageURL:       req.ImageURL,
	})
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity required"})
		return
	}
	snap := h.session(c).Cart.SetQuantity(c.Request.Context(), c.Param("product"), *req.Quantity)
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) removeItem(c *gin.Context) {
	snap := h.session(c).Cart.Remove(c.Request.Context(), c.Param("product"))
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) resumeDraft(c *gin.Context) {
	s := h.session(c)
	snap, err := s.Recovery.Resume(c.Request.Context(), s.Cart)
	if err != nil {
		h.recoveryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":     toCartResponse(snap),
		"recovery": toRecoveryResponse(s.Recovery),
	})
}

func (h *handlers) discardDraft(c *gin.Context) {
	s := h.session(c)
	if err := s.Recovery.Discard(c.Request.Context()); err != nil {
		h.recoveryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recovery": toRecoveryResponse(s.Recovery)})
}

func (h *handlers) recoveryError(c *gin.Context, err error) {
	if errors.Is(err, recovery.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": "no recovery prompt is open"})
		return
	}
	h.logger.Error("recovery failed", "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "recovery failed"})
}

func (h *handlers) getProfile(c *gin.Context) {
	p, err := h.deps.Profiles.Fetch(c.Request.Context(), customerFrom(c), h.device(c))
	if err != nil {
		h.logger.Error("profile fetch failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) saveProfile(c *gin.Context) {
	var req domain.ProfileFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
		return
	}
	p, err := h.deps.Profiles.Save(c.Request.Context(), customerFrom(c), req, h.device(c))
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "fields": verr.Fields})
			return
		}
		h.logger.Error("profile save failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) checkout(c *gin.Context) {
	ctx := c.Request.Context()
	var req checkoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkout request"})
			return
		}
	}

	v := vendorFrom(c)
	customerID := customerFrom(c)
	s := h.session(c)

	profile, err := h.deps.Profiles.Fetch(ctx, customerID, s.Device)
	if err != nil {
		h.logger.Warn("checkout: profile unavailable", "err", err)
	}

	res, err := h.deps.Checkout.Finalize(ctx, checkout.Input{
		VendorID:   v.ID,
		CustomerID: customerID,
		Cart:       s.Cart,
		Profile:    profile,
		Notes:      req.Notes,
		Returning:  h.returning(c, v.ID, customerID),
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "fields": verr.Fields})
		case errors.Is(err, domain.ErrEmptyCart):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.logger.Error("checkout failed", "vendor_id", v.ID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not place order, try again"})
		}
		return
	}
	c.JSON(http.StatusCreated, res)
}

// returning reports whether the customer ordered from this vendor before.
func (h *handlers) returning(c *gin.Context, vendorID, customerID string) bool {
	prior, err := h.deps.Checkout.ListOrders(c.Request.Context(), customerID, orderrepo.ListFilter{VendorID: vendorID, Limit: 1})
	if err != nil {
		h.logger.Debug("checkout: order history unavailable", "err", err)
		return false
	}
	return len(prior) > 0
}

// trackEvent accepts storefront telemetry. It always answers 202 so a bad or dropped
// event never surfaces in the page.
func (h *handlers) trackEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if payload, ok := req.payload(); ok {
			h.session(c).Views.Track(domain.NewEvent(vendorFrom(c).ID, payload))
		}
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.Checkout.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.orderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) handoff(c *gin.Context) {
	link, err := h.deps.Checkout.HandoffLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.orderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (h *handlers) setOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	o, err := h.deps.Checkout.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidStatus) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.orderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	filter := orderrepo.ListFilter{
		VendorID: c.Query("vendor"),
		Status:   domain.OrderStatus(c.Query("status")),
		Limit:    queryUint(c, "limit", 20),
		Offset:   queryUint(c, "offset", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	orders, err := h.deps.Checkout.ListOrders(c.Request.Context(), customerFrom(c), filter)
	if err != nil {
		h.logger.Error("list orders failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func (h *handlers) orderError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	h.logger.Error("order request failed", "order_id", c.Param("id"), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
}

func queryUint(c *gin.Context, key string, def uint64) uint64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

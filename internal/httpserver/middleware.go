package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/devicestore"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/identity"
)

type ctxKey string

const (
	vendorCtxKey   ctxKey = "vendor"
	customerCtxKey ctxKey = "customer"

	// customerHeader is the primary identity slot; the storefront mirrors it into local
	// storage and sends it back on every request.
	customerHeader = "X-Customer-ID"
	// customerCookie is the fallback identity slot.
	customerCookie = "sf_cid"

	cookieMaxAge = 365 * 24 * 60 * 60
)

// vendorMiddleware resolves the :vendor path segment (id or slug) into the request context.
func vendorMiddleware(vendors VendorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := strings.TrimSpace(c.Param("vendor"))
		if ref == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "vendor required"})
			return
		}
		v, err := vendors.Resolve(c.Request.Context(), ref)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load vendor"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), vendorCtxKey, v)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// identityMiddleware resolves the anonymous customer id from the header and cookie slots,
// issuing one when both are empty, and echoes it back on the response.
func identityMiddleware(ids IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ids.GetOrCreate(c.Request.Context(), headerSlot{c}, cookieSlot{c})
		c.Header(customerHeader, id)
		ctx := context.WithValue(c.Request.Context(), customerCtxKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func vendorFrom(c *gin.Context) *domain.Vendor {
	v, _ := c.Request.Context().Value(vendorCtxKey).(*domain.Vendor)
	return v
}

func customerFrom(c *gin.Context) string {
	id, _ := c.Request.Context().Value(customerCtxKey).(string)
	return id
}

// headerSlot exposes the identity header as a device slot.
type headerSlot struct{ c *gin.Context }

func (h headerSlot) Get(_ context.Context, key string) (string, error) {
	if key != identity.SlotKey {
		return "", domain.ErrNotFound
	}
	if v := strings.TrimSpace(h.c.GetHeader(customerHeader)); v != "" {
		return v, nil
	}
	return "", domain.ErrNotFound
}

func (h headerSlot) Set(_ context.Context, key, value string) error {
	if key != identity.SlotKey {
		return errors.New("header slot holds only the customer id")
	}
	h.c.Header(customerHeader, value)
	return nil
}

func (h headerSlot) Remove(_ context.Context, key string) error {
	if key == identity.SlotKey {
		h.c.Writer.Header().Del(customerHeader)
	}
	return nil
}

// cookieSlot exposes the identity cookie as a device slot.
type cookieSlot struct{ c *gin.Context }

func (s cookieSlot) Get(_ context.Context, key string) (string, error) {
	if key != identity.SlotKey {
		return "", domain.ErrNotFound
	}
	v, err := s.c.Cookie(customerCookie)
	if err != nil || v == "" {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (s cookieSlot) Set(_ context.Context, key, value string) error {
	if key != identity.SlotKey {
		return errors.New("cookie slot holds only the customer id")
	}
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(customerCookie, value, cookieMaxAge, "/", "", false, true)
	return nil
}

func (s cookieSlot) Remove(_ context.Context, key string) error {
	if key == identity.SlotKey {
		s.c.SetCookie(customerCookie, "", -1, "/", "", false, true)
	}
	return nil
}

var (
	_ devicestore.Store = headerSlot{}
	_ devicestore.Store = cookieSlot{}
)

package transport

import (
	"net/http"

	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest adds qty units of a product to the cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=99"`
}

// SetQuantityRequest sets a line's quantity. Zero removes the line.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

// ApplyCouponRequest applies a discount code to the cart.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

// CartHandler serves the signed-in shopper's cart.
type CartHandler struct {
	handler
	carts   service.CartService
	coupons service.CouponService
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(carts service.CartService, coupons service.CouponService, logger *zap.Logger) *CartHandler {
	return &CartHandler{handler: handler{logger: logger}, carts: carts, coupons: coupons}
}

// RegisterRoutes registers the cart. couponLimit guards code guessing.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware, couponLimit func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.SetQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.With(couponLimit).Post("/coupon", h.ApplyCoupon)
		r.Delete("/coupon", h.RemoveCoupon)
	})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	view, err := h.carts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.carts.AddItem(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.carts.SetQuantity(r.Context(), id, productID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	productID, ok := h.pathUUID(w, r, "productID")
	if !ok {
		return
	}

	view, err := h.carts.RemoveItem(r.Context(), id, productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon evaluates the code against the cart and answers with the
// refreshed cart.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req ApplyCouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.coupons.Apply(r.Context(), id, req.Code); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Get(w, r)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.coupons.Remove(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Get(w, r)
}

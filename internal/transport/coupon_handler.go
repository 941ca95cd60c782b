package transport

import (
	"net/http"
	"time"

	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PreviewCouponRequest asks what a code would take off a subtotal. Guests
// send their e-mail so targeted coupons can be checked.
type PreviewCouponRequest struct {
	Code     string          `json:"code" validate:"required,max=50"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Email    string          `json:"email" validate:"omitempty,email"`
}

// CouponRequest is the admin payload for a coupon.
type CouponRequest struct {
	Code            string             `json:"code" validate:"required,max=50"`
	DiscountPercent int                `json:"discount_percent" validate:"gte=1,lte=100"`
	ValidUntil      time.Time          `json:"valid_until" validate:"required"`
	MinPurchase     decimal.Decimal    `json:"min_purchase"`
	MaxUsage        int                `json:"max_usage" validate:"gte=1"`
	IsActive        bool               `json:"is_active"`
	Scope           domain.CouponScope `json:"scope" validate:"omitempty,oneof=general personal winback"`
	TargetEmail     string             `json:"target_email" validate:"omitempty,email"`
}

// CouponHandler serves coupon preview and coupon administration.
type CouponHandler struct {
	handler
	coupons service.CouponService
}

// NewCouponHandler creates a CouponHandler.
func NewCouponHandler(coupons service.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{handler: handler{logger: logger}, coupons: coupons}
}

// RegisterRoutes registers the public preview. optionalAuth lets signed-in
// shoppers preview targeted coupons without sending their e-mail.
func (h *CouponHandler) RegisterRoutes(r chi.Router, optionalAuth, couponLimit func(http.Handler) http.Handler) {
	r.With(optionalAuth, couponLimit).Post("/api/coupons/preview", h.Preview)
}

// RegisterAdminRoutes registers coupon management under an admin router.
func (h *CouponHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{couponID}", h.Update)
		r.Delete("/{couponID}", h.Delete)
	})
}

func (h *CouponHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewCouponRequest
	if !h.decode(w, r, &req) {
		return
	}
	email := req.Email
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		email = id.Email
	}

	quote, err := h.coupons.Preview(r.Context(), req.Code, req.Subtotal, email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, quote)
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	coupons, err := h.coupons.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, coupons)
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req CouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	coupon, err := h.coupons.Create(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, coupon)
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	couponID, ok := h.pathUUID(w, r, "couponID")
	if !ok {
		return
	}
	var req CouponRequest
	if !h.decode(w, r, &req) {
		return
	}

	coupon, err := h.coupons.Update(r.Context(), id, couponID, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, coupon)
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	couponID, ok := h.pathUUID(w, r, "couponID")
	if !ok {
		return
	}
	if err := h.coupons.Delete(r.Context(), id, couponID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req CouponRequest) input() service.CouponInput {
	return service.CouponInput{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		ValidUntil:      req.ValidUntil,
		MinPurchase:     req.MinPurchase,
		MaxUsage:        req.MaxUsage,
		IsActive:        req.IsActive,
		Scope:           req.Scope,
		TargetEmail:     req.TargetEmail,
	}
}

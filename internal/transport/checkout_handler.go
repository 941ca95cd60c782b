package transport

import (
	"net/http"

	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest places an order from the signed-in shopper's cart. Either
// an address-book entry or an inline address may be given; with neither the
// default address is used.
type CheckoutRequest struct {
	AddressID  *uuid.UUID      `json:"address_id"`
	Address    *AddressRequest `json:"address" validate:"omitempty"`
	CouponCode string          `json:"coupon_code" validate:"max=50"`
	Notes      string          `json:"notes" validate:"max=500"`
}

// GuestContactRequest is the contact and delivery data of a guest.
type GuestContactRequest struct {
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"full_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,trphone"`
	City         string `json:"city" validate:"required"`
	District     string `json:"district" validate:"required"`
	Neighborhood string `json:"neighborhood"`
	AddressLine  string `json:"address_line" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"omitempty,len=5,numeric"`
	OrderNotes   string `json:"order_notes" validate:"max=500"`
}

func (req GuestContactRequest) contact(sessionID string) domain.GuestCheckout {
	return domain.GuestCheckout{
		SessionID:    sessionID,
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		City:         req.City,
		District:     req.District,
		Neighborhood: req.Neighborhood,
		AddressLine:  req.AddressLine,
		PostalCode:   req.PostalCode,
		OrderNotes:   req.OrderNotes,
	}
}

// GuestCheckoutRequest places an order from a client-held cart.
type GuestCheckoutRequest struct {
	SessionID  string              `json:"session_id" validate:"required,max=100"`
	Contact    GuestContactRequest `json:"contact"`
	Lines      []domain.CartLine   `json:"lines" validate:"required,min=1,dive"`
	CouponCode string              `json:"coupon_code" validate:"max=50"`
}

// CheckoutHandler places orders and serves guest order tracking.
type CheckoutHandler struct {
	handler
	checkout service.CheckoutService
	orders   service.OrderService
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(checkout service.CheckoutService, orders service.OrderService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{handler: handler{logger: logger}, checkout: checkout, orders: orders}
}

// RegisterRoutes registers checkout. guestLimit throttles the public,
// unauthenticated endpoints.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware, guestLimit func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/api/checkout", h.Checkout)

	r.Group(func(r chi.Router) {
		r.Use(guestLimit)
		r.Post("/api/checkout/guest", h.GuestCheckout)
		r.Put("/api/guest-checkouts/{sessionID}", h.SaveGuestContact)
		r.Get("/api/guest-orders/{orderNumber}", h.TrackGuestOrder)
	})
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := service.CheckoutRequest{AddressID: req.AddressID, CouponCode: req.CouponCode, Notes: req.Notes}
	if req.Address != nil {
		address := req.Address.address()
		in.Address = &address
	}

	order, err := h.checkout.Checkout(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) GuestCheckout(w http.ResponseWriter, r *http.Request) {
	var req GuestCheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.checkout.GuestCheckout(r.Context(), service.GuestCheckoutRequest{
		Contact:    req.Contact.contact(req.SessionID),
		Lines:      req.Lines,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// SaveGuestContact stores the guest's form as they fill it in.
func (h *CheckoutHandler) SaveGuestContact(w http.ResponseWriter, r *http.Request) {
	var req GuestContactRequest
	if !h.decode(w, r, &req) {
		return
	}

	saved, err := h.checkout.SaveGuestContact(r.Context(), req.contact(chi.URLParam(r, "sessionID")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, saved)
}

// TrackGuestOrder handles GET /api/guest-orders/{orderNumber}?email=
func (h *CheckoutHandler) TrackGuestOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.TrackGuest(r.Context(), chi.URLParam(r, "orderNumber"), r.URL.Query().Get("email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

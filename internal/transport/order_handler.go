package transport

import (
	"context"
	"net/http"

	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonRequest carries the shopper's reason for a cancel or refund.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TransitionRequest is an admin status change. Shipping needs the tracking
// number and carrier.
type TransitionRequest struct {
	Event          domain.OrderEvent `json:"event" validate:"required,oneof=confirm_payment start_preparing ship deliver cancel"`
	TrackingNumber string            `json:"tracking_number" validate:"max=100"`
	CargoCompany   string            `json:"cargo_company" validate:"max=100"`
	Reason         string            `json:"reason" validate:"max=500"`
	Note           string            `json:"note" validate:"max=500"`
}

// OrderHandler serves order history and order administration.
type OrderHandler struct {
	handler
	orders service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{handler: handler{logger: logger}, orders: orders}
}

// RegisterRoutes registers the shopper's orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListMine)
		r.Get("/{orderID}", h.GetMine)
		r.Post("/{orderID}/cancel", h.Cancel)
		r.Post("/{orderID}/refund", h.RequestRefund)
	})
}

// RegisterAdminRoutes registers order management under an admin router.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)
		r.Post("/{orderID}/transitions", h.Transition)
		r.Post("/{orderID}/refund/approve", h.ApproveRefund)
	})
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	page, err := h.orders.ListMine(r.Context(), id, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.GetMine(r.Context(), id, orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.orders.Cancel)
}

func (h *OrderHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.orders.RequestRefund)
}

type reasonAction func(ctx context.Context, id domain.Identity, orderID uuid.UUID, reason string) (*domain.Order, error)

func (h *OrderHandler) withReason(w http.ResponseWriter, r *http.Request, action reasonAction) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req ReasonRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	order, err := action(r.Context(), id, orderID, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// List handles GET /api/admin/orders?status=&page=&page_size=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	q := service.OrderListQuery{Page: queryInt(r, "page"), PageSize: queryInt(r, "page_size")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		q.Status = &status
	}

	page, err := h.orders.List(r.Context(), id, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), id, orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	var req TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.Transition(r.Context(), id, orderID, domain.Transition{
		Event:          req.Event,
		TrackingNumber: req.TrackingNumber,
		CargoCompany:   req.CargoCompany,
		Reason:         req.Reason,
		Note:           req.Note,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log(r).Info("Order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ApproveRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.ApproveRefund(r.Context(), id, orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

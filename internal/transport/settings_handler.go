package transport

import (
	"net/http"

	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShippingSettingsRequest replaces the shipping settings.
type ShippingSettingsRequest struct {
	Enabled       bool            `json:"enabled"`
	Fee           decimal.Decimal `json:"fee"`
	FreeThreshold decimal.Decimal `json:"free_shipping_threshold"`
	Carrier       string          `json:"carrier" validate:"max=100"`
}

// SettingsHandler serves the shipping settings.
type SettingsHandler struct {
	handler
	settings service.SettingsService
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{handler: handler{logger: logger}, settings: settings}
}

// RegisterRoutes exposes the current shipping terms to the storefront.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/settings/shipping", h.Shipping)
}

// RegisterAdminRoutes registers settings management under an admin router.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings/shipping", h.Shipping)
	r.Put("/settings/shipping", h.UpdateShipping)
}

func (h *SettingsHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Shipping(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req ShippingSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	settings, err := h.settings.UpdateShipping(r.Context(), id, domain.ShippingSettings{
		Enabled:       req.Enabled,
		Fee:           req.Fee,
		FreeThreshold: req.FreeThreshold,
		Carrier:       req.Carrier,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

package transport

import (
	"net/http"

	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddressRequest is a new address-book entry.
type AddressRequest struct {
	Title        string `json:"title" validate:"required,max=50"`
	FullName     string `json:"full_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,trphone"`
	City         string `json:"city" validate:"required"`
	District     string `json:"district" validate:"required"`
	Neighborhood string `json:"neighborhood"`
	AddressLine  string `json:"address_line" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"omitempty,len=5,numeric"`
	IsDefault    bool   `json:"is_default"`
}

func (req AddressRequest) address() domain.Address {
	return domain.Address{
		Title:        req.Title,
		FullName:     req.FullName,
		Phone:        req.Phone,
		City:         req.City,
		District:     req.District,
		Neighborhood: req.Neighborhood,
		AddressLine:  req.AddressLine,
		PostalCode:   req.PostalCode,
		IsDefault:    req.IsDefault,
	}
}

// AddressHandler serves the signed-in shopper's address book.
type AddressHandler struct {
	handler
	addresses service.AddressService
}

// NewAddressHandler creates an AddressHandler.
func NewAddressHandler(addresses service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{handler: handler{logger: logger}, addresses: addresses}
}

// RegisterRoutes registers the address book.
func (h *AddressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/addresses", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Put("/{addressID}", h.Update)
		r.Delete("/{addressID}", h.Remove)
		r.Put("/{addressID}/default", h.SetDefault)
	})
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	addresses, err := h.addresses.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, addresses)
}

func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req AddressRequest
	if !h.decode(w, r, &req) {
		return
	}

	address, err := h.addresses.Add(r.Context(), id, req.address())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, address)
}

// Update applies a partial update; omitted fields keep their value.
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	addressID, ok := h.pathUUID(w, r, "addressID")
	if !ok {
		return
	}
	var patch domain.AddressPatch
	if !h.decode(w, r, &patch) {
		return
	}

	address, err := h.addresses.Update(r.Context(), id, addressID, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, address)
}

func (h *AddressHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	addressID, ok := h.pathUUID(w, r, "addressID")
	if !ok {
		return
	}
	if err := h.addresses.Remove(r.Context(), id, addressID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	addressID, ok := h.pathUUID(w, r, "addressID")
	if !ok {
		return
	}
	if err := h.addresses.SetDefault(r.Context(), id, addressID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.List(w, r)
}

// Package transport exposes the services over JSON HTTP with chi.
package transport

import (
	"net/http"
	"strconv"

	"ipek-store/internal/domain"
	"ipek-store/internal/logger"
	"ipek-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageResponse is the body of endpoints that return nothing else.
type MessageResponse struct {
	Message string `json:"message"`
}

// handler carries what every resource handler needs.
type handler struct {
	logger *zap.Logger
}

func (h handler) log(r *http.Request) *zap.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

func (h handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if kind := domain.KindOf(err); kind != "" {
		h.log(r).Debug("Request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	middleware.RespondWithDomainError(w, r, h.logger, err)
}

// decode reads and validates the JSON body, answering the request itself
// when that fails.
func (h handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.log(r).Debug("Request body rejected", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return false
	}
	return true
}

// identity returns the caller set by the auth middleware.
func (h handler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		h.log(r).Error("Identity not found in context")
		h.fail(w, r, domain.ErrUnauthorized)
	}
	return id, ok
}

func (h handler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.fail(w, r, domain.Validation(map[string]string{name: "Geçersiz kimlik"}))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

package middleware

import (
	"net/http"

	"ipek-store/internal/domain"
	"ipek-store/internal/logger"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(fallback *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{domain.RoleAdmin}, fallback)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []string, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context(), fallback)
			role, ok := GetUserRole(r.Context())
			if !ok {
				log.Warn("Role not found in context")
				RespondWithDomainError(w, r, fallback, domain.ErrForbidden)
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				log.Warn("User role not authorized",
					zap.String("role", role),
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithDomainError(w, r, fallback, domain.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

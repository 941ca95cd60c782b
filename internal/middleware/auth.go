package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ipek-store/internal/domain"
	"ipek-store/internal/logger"
	"ipek-store/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware validates JWT tokens and stores the caller identity
func AuthMiddleware(tokens TokenValidator, fallback *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context(), fallback)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("Missing authorization header")
				RespondWithDomainError(w, r, fallback, domain.ErrUnauthorized)
				return
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				log.Debug("Invalid authorization header format")
				RespondWithDomainError(w, r, fallback, service.ErrInvalidToken)
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				log.Debug("Token validation failed", zap.Error(err))
				if !errors.Is(err, service.ErrTokenExpired) {
					err = service.ErrInvalidToken
				}
				RespondWithDomainError(w, r, fallback, err)
				return
			}

			identity := claims.Identity()
			log.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.String("role", identity.Role),
			)

			ctx := WithIdentity(r.Context(), identity)
			ctx = logger.NewContext(ctx, log.With(zap.String("user_id", identity.UserID.String())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the identity when a valid token is sent and
// lets anonymous requests through untouched.
func OptionalAuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if claims, err := tokens.ValidateToken(tokenString); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), claims.Identity()))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity extracts the caller identity from request context
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return "", false
	}
	return id.UserID.String(), true
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return "", false
	}
	return id.Role, true
}

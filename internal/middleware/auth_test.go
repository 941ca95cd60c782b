package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository/memstore"
	"ipek-store/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func testTokens() TokenValidator {
	repos := memstore.New().Repositories()
	return service.NewUserService(repos.Users, repos.RefreshTokens, nil,
		config.JWTConfig{Secret: testSecret, AccessExpiry: 15, RefreshExpiry: 7}, nil, zap.NewNop())
}

func signToken(t *testing.T, userID uuid.UUID, role, email string, expires time.Time) string {
	t.Helper()
	claims := &service.Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testTokens(), zap.NewNop())(okHandler())

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			path := "/" + pathSuffix
			if path == "/" {
				path = "/test"
			}

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				return false
			}
			return w.Code == http.StatusUnauthorized && body.Error.Code == string(domain.KindUnauthorized)
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testTokens(), zap.NewNop())(okHandler())

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(role string, minutesAgo int) bool {
			token := signToken(t, uuid.New(), role, "a@example.com", time.Now().Add(-time.Duration(minutesAgo)*time.Minute))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
		gen.IntRange(2, 10000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensCarryIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)
	tokens := testTokens()

	properties.Property("valid tokens put the caller identity in the context", prop.ForAll(
		func(role string, local string) bool {
			userID := uuid.New()
			email := local + "@example.com"
			token := signToken(t, userID, role, email, time.Now().Add(time.Hour))

			var got domain.Identity
			handlerCalled := false
			handler := AuthMiddleware(tokens, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				got, _ = GetIdentity(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return handlerCalled && w.Code == http.StatusOK &&
				got == domain.Identity{UserID: userID, Role: role, Email: email}
		},
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)
	handler := AuthMiddleware(testTokens(), zap.NewNop())(okHandler())

	properties.Property("invalid token formats are rejected", prop.ForAll(
		func(invalidToken string) bool {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+invalidToken)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.Property("tokens without Bearer prefix are rejected", prop.ForAll(
		func(token string) bool {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code == http.StatusUnauthorized
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRequireAdmin(t *testing.T) {
	tokens := testTokens()
	handler := AuthMiddleware(tokens, zap.NewNop())(RequireAdmin(zap.NewNop())(okHandler()))

	for role, want := range map[string]int{
		domain.RoleUser:  http.StatusForbidden,
		domain.RoleAdmin: http.StatusOK,
	} {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), role, "a@example.com", time.Now().Add(time.Hour)))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}

	w := httptest.NewRecorder()
	RequireAdmin(zap.NewNop())(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	var seen bool
	handler := OptionalAuthMiddleware(testTokens())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = GetIdentity(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.False(t, seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, seen)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), domain.RoleUser, "a@example.com", time.Now().Add(time.Hour)))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, seen)
}

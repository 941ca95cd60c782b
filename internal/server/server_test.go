package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/middleware"
	"ipek-store/internal/notification"
	"ipek-store/internal/repository/memstore"
	"ipek-store/internal/service"
	"ipek-store/internal/transport"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "development"},
		JWT:       config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7},
		RateLimit: config.RateLimitConfig{Requests: 100, Window: time.Minute},
		Orders:    config.OrderConfig{RefundWindow: 14 * 24 * time.Hour},
		Coupons:   config.CouponConfig{Reservation: config.CouponReserveOnApply},
		Shipping: config.ShippingDefaults{
			Enabled:       true,
			Fee:           decimal.RequireFromString("29.90"),
			FreeThreshold: decimal.RequireFromString("500"),
			Carrier:       "Yurtiçi Kargo",
		},
	}
	store := memstore.New()
	router := NewRouter(Dependencies{
		Config:     cfg,
		Logger:     zap.NewNop(),
		Repos:      store.Repositories(),
		Transactor: store,
		Notifier:   notification.Nop{},
	})
	return &testServer{t: t, router: router, store: store}
}

func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(s.t, json.NewDecoder(w.Body).Decode(out), "%s %s", method, path)
	}
	return w.Code
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	var resp transport.LoginResponse
	code := s.do(http.MethodPost, "/api/users/login", "", transport.LoginRequest{Email: email, Password: password}, &resp)
	require.Equal(s.t, http.StatusOK, code)
	return resp.AccessToken
}

func (s *testServer) seedAdmin() string {
	s.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("yonetici-sifre"), bcrypt.MinCost)
	require.NoError(s.t, err)
	now := time.Now()
	require.NoError(s.t, s.store.Repositories().Users.Create(context.Background(), &domain.User{
		ID:           uuid.New(),
		Email:        "admin@ipek.test",
		PasswordHash: string(hash),
		FirstName:    "Mağaza",
		LastName:     "Yönetici",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	return s.login("admin@ipek.test", "yonetici-sifre")
}

func (s *testServer) seedCustomer(email string) string {
	s.t.Helper()
	code := s.do(http.MethodPost, "/api/users/register", "", transport.RegisterRequest{
		Email: email, Password: "gizli-sifre", FirstName: "Ayşe", LastName: "Yılmaz",
	}, nil)
	require.Equal(s.t, http.StatusCreated, code)
	return s.login(email, "gizli-sifre")
}

func (s *testServer) seedProduct(admin string, price string, stock int) *domain.Product {
	s.t.Helper()
	var category domain.Category
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/admin/categories", admin,
		transport.CategoryRequest{Name: "Eşarp " + uuid.NewString()[:6]}, &category))

	var product domain.Product
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/admin/products", admin, transport.ProductRequest{
		Name:       "İpek Eşarp",
		Price:      decimal.RequireFromString(price),
		CategoryID: category.ID,
		Images:     []string{"/img/esarp.jpg"},
		Stock:      stock,
	}, &product))
	return &product
}

var deliveryAddress = transport.AddressRequest{
	Title:       "Ev",
	FullName:    "Ayşe Yılmaz",
	Phone:       "0532 123 45 67",
	City:        "İstanbul",
	District:    "Kadıköy",
	AddressLine: "Moda Cad. No:1",
	PostalCode:  "34710",
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	customer := s.seedCustomer("ayse@example.com")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/orders", "", nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/orders", customer, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/admin/categories", customer,
		transport.CategoryRequest{Name: "Şal"}, nil))

	admin := s.seedAdmin()
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/orders", admin, nil, nil))
}

func TestCustomerCheckoutAndFulfilment(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin()
	customer := s.seedCustomer("ayse@example.com")
	scarf := s.seedProduct(admin, "150", 5)

	var cart service.CartView
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/cart/items", customer,
		transport.AddItemRequest{ProductID: scarf.ID, Quantity: 2}, &cart))
	assert.Equal(t, "300.00", cart.Subtotal.StringFixed(2))
	assert.Equal(t, "29.90", cart.ShippingFee.StringFixed(2))

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/cart/items", customer,
		transport.AddItemRequest{ProductID: scarf.ID, Quantity: 9}, nil))

	var order domain.Order
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/checkout", customer,
		transport.CheckoutRequest{Address: &deliveryAddress, Notes: "Hediye paketi"}, &order))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "329.90", order.Total.StringFixed(2))
	assert.Equal(t, "05321234567", order.Address.Phone)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/cart", customer, nil, &cart))
	assert.Empty(t, cart.Lines)

	var product domain.Product
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products/"+scarf.ID.String(), "", nil, &product))
	assert.Equal(t, 3, product.Stock)

	orderPath := "/api/admin/orders/" + order.ID.String() + "/transitions"
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, orderPath, customer,
		transport.TransitionRequest{Event: domain.EventConfirmPayment}, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, orderPath, admin,
		transport.TransitionRequest{Event: domain.EventShip, TrackingNumber: "YK1", CargoCompany: "Yurtiçi Kargo"}, nil))

	for _, tr := range []transport.TransitionRequest{
		{Event: domain.EventConfirmPayment},
		{Event: domain.EventStartPreparing},
		{Event: domain.EventShip, TrackingNumber: "YK123456", CargoCompany: "Yurtiçi Kargo"},
	} {
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, orderPath, admin, tr, &order), "event %s", tr.Event)
	}
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	var mine domain.Order
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/orders/"+order.ID.String(), customer, nil, &mine))
	assert.Equal(t, "YK123456", mine.TrackingNumber)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel", customer, nil, nil))

	other := s.seedCustomer("mehmet@example.com")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/orders/"+order.ID.String(), other, nil, nil))
}

func TestGuestCheckoutAndTracking(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin()
	shawl := s.seedProduct(admin, "650", 2)

	req := transport.GuestCheckoutRequest{
		SessionID: "guest-session-1",
		Contact: transport.GuestContactRequest{
			Email:       "misafir@example.com",
			FullName:    "Zeynep Kaya",
			Phone:       "05441112233",
			City:        "İzmir",
			District:    "Karşıyaka",
			AddressLine: "Cemal Gürsel Cad. No:5",
		},
		Lines: []domain.CartLine{{ProductID: shawl.ID, Quantity: 1}},
	}

	var order domain.Order
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/checkout/guest", "", req, &order))
	assert.Nil(t, order.UserID)
	assert.Equal(t, "guest-session-1", order.GuestSessionID)
	assert.True(t, order.ShippingFee.IsZero())
	assert.Equal(t, "650.00", order.Total.StringFixed(2))

	var tracked domain.Order
	require.Equal(t, http.StatusOK, s.do(http.MethodGet,
		"/api/guest-orders/"+order.OrderNumber+"?email=MISAFIR@example.com", "", nil, &tracked))
	assert.Equal(t, order.ID, tracked.ID)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet,
		"/api/guest-orders/"+order.OrderNumber+"?email=baska@example.com", "", nil, nil))

	req.Lines[0].Quantity = 5
	var errResp middleware.ErrorResponse
	w := httptest.NewRecorder()
	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/api/checkout/guest", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.Equal(t, string(domain.KindInsufficientStock), errResp.Error.Code)
}

func TestRequireJSONRejectsOtherContentTypes(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewBufferString("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

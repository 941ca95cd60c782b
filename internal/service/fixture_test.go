package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository"
	"ipek-store/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testClock advances one second per reading so creation order is stable.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []string
	changed []domain.OrderStatus
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, order *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, order.OrderNumber)
	return nil
}

func (n *recordingNotifier) OrderStatusChanged(ctx context.Context, order *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, order.Status)
	return nil
}

type fixture struct {
	store    *memstore.Store
	repos    repository.Repositories
	clock    *testClock
	notifier *recordingNotifier
	category *domain.Category

	users     UserService
	products  ProductService
	settings  SettingsService
	carts     CartService
	coupons   CouponService
	addresses AddressService
	orders    OrderService
	checkout  CheckoutService
}

type fixtureOption func(*config.Config)

func withReservation(mode string) fixtureOption {
	return func(c *config.Config) { c.Coupons.Reservation = mode }
}

func withRestock(onCancel, onRefund bool) fixtureOption {
	return func(c *config.Config) {
		c.Orders.RestockOnCancel = onCancel
		c.Orders.RestockOnRefund = onRefund
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7},
		Orders:  config.OrderConfig{RefundWindow: 14 * 24 * time.Hour},
		Coupons: config.CouponConfig{Reservation: config.CouponReserveOnApply},
		Shipping: config.ShippingDefaults{
			Enabled:       true,
			Fee:           decimal.RequireFromString("29.90"),
			FreeThreshold: decimal.RequireFromString("500"),
			Carrier:       "Yurtiçi Kargo",
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memstore.New()
	repos := store.Repositories()
	clock := &testClock{now: testStart}
	logger := zap.NewNop()
	notifier := &recordingNotifier{}

	f := &fixture{store: store, repos: repos, clock: clock, notifier: notifier}
	f.products = NewProductService(repos.Products, repos.Categories, clock.Now, logger)
	f.settings = NewSettingsService(repos.Settings, cfg.Shipping, clock.Now, logger)
	f.carts = NewCartService(repos, store, cfg.Coupons, cfg.Shipping, clock.Now, logger)
	f.users = NewUserService(repos.Users, repos.RefreshTokens, f.carts, cfg.JWT, clock.Now, logger)
	f.coupons = NewCouponService(repos, store, cfg.Coupons, clock.Now, logger)
	f.addresses = NewAddressService(repos.Addresses, store, clock.Now, logger)
	f.orders = NewOrderService(repos.Orders, store, notifier, cfg.Orders, clock.Now, logger)
	f.checkout = NewCheckoutService(repos, store, notifier, cfg.Coupons, cfg.Shipping, clock.Now, logger)

	f.category = &domain.Category{ID: uuid.New(), Name: "Eşarp", CreatedAt: testStart}
	require.NoError(t, repos.Categories.Create(context.Background(), f.category))
	return f
}

func (f *fixture) admin() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin, Email: "admin@ipek.test"}
}

func (f *fixture) customer() domain.Identity {
	id := uuid.New()
	return domain.Identity{UserID: id, Role: domain.RoleUser, Email: id.String()[:8] + "@example.com"}
}

func (f *fixture) seedProduct(t *testing.T, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:         uuid.New(),
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: f.category.ID,
		Images:     []string{"/img/" + name + ".jpg"},
		Stock:      stock,
		CreatedAt:  testStart,
		UpdatedAt:  testStart,
	}
	require.NoError(t, f.repos.Products.Create(context.Background(), p))
	return p
}

func (f *fixture) seedCoupon(t *testing.T, c domain.Coupon) *domain.Coupon {
	t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Scope == "" {
		c.Scope = domain.CouponScopeGeneral
	}
	if c.ValidUntil.IsZero() {
		c.ValidUntil = testStart.Add(30 * 24 * time.Hour)
	}
	if c.MaxUsage == 0 {
		c.MaxUsage = 999
	}
	c.IsActive = true
	c.CreatedAt = testStart
	c.UpdatedAt = testStart
	require.NoError(t, f.repos.Coupons.Create(context.Background(), &c))
	return &c
}

func (f *fixture) welcomeCoupon(t *testing.T) *domain.Coupon {
	return f.seedCoupon(t, domain.Coupon{
		Code:            "HOSGELDIN10",
		DiscountPercent: 10,
		MinPurchase:     decimal.NewFromInt(100),
	})
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.repos.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) usage(t *testing.T, code string) int {
	t.Helper()
	c, err := f.repos.Coupons.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return c.UsageCount
}

func (f *fixture) addAddress(t *testing.T, id domain.Identity, title string, isDefault bool) *domain.Address {
	t.Helper()
	a, err := f.addresses.Add(context.Background(), id, validAddress(title, isDefault))
	require.NoError(t, err)
	return a
}

func validAddress(title string, isDefault bool) domain.Address {
	return domain.Address{
		Title:       title,
		FullName:    "Ayşe Yılmaz",
		Phone:       "0532 123 45 67",
		City:        "İstanbul",
		District:    "Kadıköy",
		AddressLine: "Moda Cad. No:1",
		PostalCode:  "34710",
		IsDefault:   isDefault,
	}
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

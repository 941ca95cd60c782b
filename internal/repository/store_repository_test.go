package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponRepository_ReserveIsBoundedUnderConcurrency(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewCouponRepository(testDB)

	now := time.Now()
	coupon := &domain.Coupon{
		ID:              uuid.New(),
		Code:            "IPEK" + uuid.New().String()[:6],
		DiscountPercent: 10,
		ValidUntil:      now.Add(24 * time.Hour),
		MinPurchase:     decimal.Zero,
		MaxUsage:        3,
		IsActive:        true,
		Scope:           domain.CouponScopeGeneral,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(ctx, coupon))

	var (
		wg      sync.WaitGroup
		granted int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Reserve(ctx, coupon.Code)
			if err == nil {
				atomic.AddInt32(&granted, 1)
				return
			}
			assert.ErrorIs(t, err, ErrCouponExhausted)
		}()
	}
	wg.Wait()

	got, err := repo.FindByCode(ctx, coupon.Code)
	require.NoError(t, err)
	assert.EqualValues(t, 3, granted)
	assert.Equal(t, 3, got.UsageCount)

	require.NoError(t, repo.Release(ctx, coupon.Code))
	got, _ = repo.FindByCode(ctx, coupon.Code)
	assert.Equal(t, 2, got.UsageCount)
}

func TestCouponRepository_CodeIsCaseInsensitive(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := NewCouponRepository(testDB)

	now := time.Now()
	code := "YAZ" + uuid.New().String()[:6]
	coupon := &domain.Coupon{
		ID: uuid.New(), Code: code, DiscountPercent: 15, ValidUntil: now.Add(time.Hour),
		MaxUsage: 1, IsActive: true, Scope: domain.CouponScopePersonal, TargetEmail: "a@b.com",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, coupon))

	got, err := repo.FindByCode(ctx, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.TargetEmail)

	dup := *coupon
	dup.ID = uuid.New()
	dup.Code = "yaz" + code[3:]
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrCouponCodeTaken)

	_, err = repo.FindByCode(ctx, "missing-"+code)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func newTestAddress(userID uuid.UUID, title string, createdAt time.Time) *domain.Address {
	return &domain.Address{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		FullName:    "Ayşe Yılmaz",
		Phone:       "05321234567",
		City:        "İstanbul",
		District:    "Kadıköy",
		AddressLine: "Moda Cad. No:1",
		PostalCode:  "34710",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestAddressRepository_ConcurrentSetDefaultKeepsOneDefault(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, ctx)
	repo := NewAddressRepository(testDB)

	base := time.Now()
	ids := make([]uuid.UUID, 0, 4)
	for i, title := range []string{"Ev", "İş", "Yazlık", "Annem"} {
		a := newTestAddress(user.ID, title, base.Add(time.Duration(i)*time.Second))
		a.IsDefault = i == 0
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID)
	}

	tx := NewTransactor(testDB)
	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				err := tx.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
					if _, err := repos.Addresses.LockByUser(ctx, user.ID); err != nil {
						return err
					}
					return repos.Addresses.SetDefault(ctx, user.ID, id)
				})
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
	assert.True(t, list[0].IsDefault, "default address is listed first")
}

func TestAddressRepository_PromoteLatestAfterDelete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, ctx)
	repo := NewAddressRepository(testDB)

	base := time.Now()
	first := newTestAddress(user.ID, "Ev", base)
	first.IsDefault = true
	second := newTestAddress(user.ID, "İş", base.Add(time.Minute))
	third := newTestAddress(user.ID, "Yazlık", base.Add(2*time.Minute))
	for _, a := range []*domain.Address{first, second, third} {
		require.NoError(t, repo.Create(ctx, a))
	}

	require.NoError(t, repo.Delete(ctx, user.ID, first.ID))
	require.NoError(t, repo.PromoteLatest(ctx, user.ID))

	got, err := repo.FindByID(ctx, user.ID, third.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	_, err = repo.FindByID(ctx, uuid.New(), third.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCartRepository_LinesAndCoupon(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, ctx)
	product := createTestProduct(t, ctx, "250.00", 10)
	repo := NewCartRepository(testDB)

	empty, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	require.NoError(t, repo.SetLine(ctx, user.ID, product.ID, 2))
	require.NoError(t, repo.SetLine(ctx, user.ID, product.ID, 3))
	require.NoError(t, repo.SetCoupon(ctx, user.ID, "YAZ10"))

	cart, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, "YAZ10", cart.CouponCode)

	require.NoError(t, repo.Clear(ctx, user.ID))
	cart, err = repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Empty(t, cart.CouponCode)
}

func TestOrderRepository_RoundTripAndHistory(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, ctx)
	product := createTestProduct(t, ctx, "299.90", 10)
	repo := NewOrderRepository(testDB)

	now := time.Now().UTC().Truncate(time.Millisecond)
	items := []domain.OrderItem{{
		ProductID: product.ID, Name: product.Name, UnitPrice: product.Price, Quantity: 2, Image: product.MainImage(),
	}}
	order := domain.NewOrder(items, decimal.RequireFromString("599.80"), decimal.RequireFromString("59.98"), decimal.Zero, now)
	order.UserID = &user.ID
	order.CustomerEmail = user.Email
	order.DiscountCode = "YAZ10"
	order.Address = newTestAddress(user.ID, "Ev", now).Snapshot()
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("539.82")))
	assert.Equal(t, items[0].Name, got.Items[0].Name)
	assert.True(t, got.Items[0].UnitPrice.Equal(product.Price))
	assert.Equal(t, "Kadıköy", got.Address.District)
	require.NotNil(t, got.UserID)
	assert.Equal(t, user.ID, *got.UserID)

	_, err = order.Apply(domain.Transition{Event: domain.EventConfirmPayment}, now.Add(time.Minute), 14*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, order))
	require.NoError(t, repo.AppendHistory(ctx, order.History[len(order.History)-1]))

	history, err := repo.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.OrderStatusPending, history[0].Status)
	assert.Equal(t, domain.OrderStatusPaymentReceived, history[1].Status)

	byNumber, err := repo.FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentReceived, byNumber.Status)
	assert.NotNil(t, byNumber.PaymentReceivedAt)

	mine, total, err := repo.ListByUser(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, mine, 1)

	_, err = testDB.ExecContext(ctx, `DELETE FROM order_status_history WHERE order_id = $1`, order.ID)
	assert.Error(t, err, "history is append-only")

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestSettingsAndGuestCheckoutRepositories(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	settings := NewSettingsRepository(testDB)
	s := &domain.ShippingSettings{
		Enabled: true, Fee: decimal.RequireFromString("29.90"), FreeThreshold: decimal.NewFromInt(500),
		Carrier: "Yurtiçi Kargo", UpdatedAt: time.Now(),
	}
	require.NoError(t, settings.SaveShipping(ctx, s))
	got, err := settings.GetShipping(ctx)
	require.NoError(t, err)
	assert.True(t, got.Fee.Equal(s.Fee))
	assert.Equal(t, "Yurtiçi Kargo", got.Carrier)

	guests := NewGuestCheckoutRepository(testDB)
	session := "sess-" + uuid.New().String()
	g := &domain.GuestCheckout{
		SessionID: session, Email: "misafir@ipek.test", FullName: "Zeynep Kaya", Phone: "05551112233",
		City: "İzmir", District: "Karşıyaka", AddressLine: "Cemal Gürsel Cad. 5", CreatedAt: time.Now(),
	}
	require.NoError(t, guests.Upsert(ctx, g))
	g.City = "Ankara"
	require.NoError(t, guests.Upsert(ctx, g))

	saved, err := guests.FindBySession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "Ankara", saved.City)

	_, err = guests.FindBySession(ctx, "nope")
	assert.ErrorIs(t, err, ErrGuestCheckoutNotFound)
}

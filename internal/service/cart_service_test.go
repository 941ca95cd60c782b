package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddItemRespectsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "99.90", 3)
	user := f.customer()

	view, err := f.carts.AddItem(ctx, user, scarf.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "199.80", view.Subtotal.StringFixed(2))
	assert.Equal(t, "29.90", view.ShippingFee.StringFixed(2))
	assert.Equal(t, "229.70", view.Total.StringFixed(2))
	assert.Equal(t, "/img/Fular.jpg", view.Lines[0].Image)

	_, err = f.carts.AddItem(ctx, user, scarf.ID, 2)
	requireKind(t, err, domain.KindInsufficientStock)

	view, err = f.carts.AddItem(ctx, user, scarf.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, view.ItemCount)

	_, err = f.carts.AddItem(ctx, user, uuid.New(), 1)
	requireKind(t, err, domain.KindNotFound)
}

func TestCartService_SetQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "50", 4)
	user := f.customer()

	_, err := f.carts.SetQuantity(ctx, user, scarf.ID, 5)
	requireKind(t, err, domain.KindInsufficientStock)

	view, err := f.carts.SetQuantity(ctx, user, scarf.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount)

	view, err = f.carts.SetQuantity(ctx, user, scarf.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
	assert.True(t, view.ShippingFee.IsZero(), "an empty cart owes no shipping")
}

func TestCartService_ConcurrentSetQuantityLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "50", 100)
	user := f.customer()
	_, err := f.carts.AddItem(ctx, user, scarf.ID, 1)
	require.NoError(t, err)

	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for _, qty := range []int{7, 13} {
			wg.Add(1)
			go func(qty int) {
				defer wg.Done()
				_, err := f.carts.SetQuantity(ctx, user, scarf.ID, qty)
				assert.NoError(t, err)
			}(qty)
		}
		wg.Wait()

		cart, err := f.repos.Carts.Get(ctx, user.UserID)
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1, "line lost in round %d", round)
		assert.Contains(t, []int{7, 13}, cart.Lines[0].Quantity)
	}
}

func TestCartService_ClearReleasesCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "200", 10)
	f.welcomeCoupon(t)
	user := f.customer()

	_, err := f.carts.AddItem(ctx, user, scarf.ID, 1)
	require.NoError(t, err)
	_, err = f.coupons.Apply(ctx, user, "HOSGELDIN10")
	require.NoError(t, err)
	require.Equal(t, 1, f.usage(t, "HOSGELDIN10"))

	require.NoError(t, f.carts.Clear(ctx, user))
	assert.Equal(t, 0, f.usage(t, "HOSGELDIN10"))

	view, err := f.carts.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Empty(t, view.CouponCode)
}

func TestCartService_ViewReportsCouponThatStoppedApplying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "200", 10)
	f.welcomeCoupon(t)
	user := f.customer()

	_, err := f.carts.AddItem(ctx, user, scarf.ID, 1)
	require.NoError(t, err)
	_, err = f.coupons.Apply(ctx, user, "HOSGELDIN10")
	require.NoError(t, err)

	view, err := f.carts.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "20.00", view.Discount.StringFixed(2))
	assert.Empty(t, view.CouponError)

	f.clock.Advance(60 * 24 * time.Hour)
	view, err = f.carts.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, view.Discount.IsZero())
	assert.Equal(t, domain.ErrCouponExpired.Message, view.CouponError)
	assert.Equal(t, "HOSGELDIN10", view.CouponCode)
}

func TestCartService_MergeGuestDropsUnknownProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "80", 10)
	shawl := f.seedProduct(t, "Şal", "120", 10)
	user := f.customer()

	_, err := f.carts.AddItem(ctx, user, scarf.ID, 1)
	require.NoError(t, err)

	err = f.carts.MergeGuest(ctx, user.UserID, []domain.CartLine{
		{ProductID: scarf.ID, Quantity: 2},
		{ProductID: shawl.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 4},
		{ProductID: shawl.ID, Quantity: 0},
	})
	require.NoError(t, err)

	cart, err := f.repos.Carts.Get(ctx, user.UserID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	got := map[uuid.UUID]int{}
	for _, l := range cart.Lines {
		got[l.ProductID] = l.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{scarf.ID: 3, shawl.ID: 1}, got)
}

func TestProperty_MergeGuestPreservesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := []*domain.Product{
		f.seedProduct(t, "Fular", "79.90", 1000),
		f.seedProduct(t, "Şal", "349.00", 1000),
		f.seedProduct(t, "Eşarp", "299.90", 1000),
	}
	prices := map[uuid.UUID]decimal.Decimal{}
	for _, p := range catalog {
		prices[p.ID] = p.Price
	}

	// Each generated code picks a product (code / 5) and a quantity (code % 5 + 1).
	decode := func(codes []int) []domain.CartLine {
		lines := make([]domain.CartLine, 0, len(codes))
		for _, c := range codes {
			lines = append(lines, domain.CartLine{ProductID: catalog[c/5].ID, Quantity: c%5 + 1})
		}
		return lines
	}
	codes := gen.SliceOfN(4, gen.IntRange(0, len(catalog)*5-1))

	properties := gopter.NewProperties(nil)
	properties.Property("merged total equals user total plus guest total", prop.ForAll(
		func(userCodes, guestCodes []int) bool {
			userLines, guestLines := decode(userCodes), decode(guestCodes)
			user := f.customer()
			for _, l := range userLines {
				if _, err := f.carts.AddItem(ctx, user, l.ProductID, l.Quantity); err != nil {
					return false
				}
			}
			before, err := f.repos.Carts.Get(ctx, user.UserID)
			if err != nil {
				return false
			}
			guest := domain.NewGuestCart(guestLines)
			want := before.Total(prices).Add(guest.Total(prices))

			if err := f.carts.MergeGuest(ctx, user.UserID, guestLines); err != nil {
				return false
			}
			after, err := f.repos.Carts.Get(ctx, user.UserID)
			if err != nil {
				return false
			}
			return after.Total(prices).Equal(want)
		},
		codes,
		codes,
	))

	properties.TestingRun(t)
}

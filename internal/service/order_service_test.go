package service

import (
	"context"
	"testing"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeOrder checks out qty units of a fresh product for user.
func placeOrder(t *testing.T, f *fixture, user domain.Identity, qty int) (*domain.Order, *domain.Product) {
	t.Helper()
	ctx := context.Background()
	scarf := f.seedProduct(t, "Fular", "150", 10)
	f.addAddress(t, user, "Ev", true)
	_, err := f.carts.AddItem(ctx, user, scarf.ID, qty)
	require.NoError(t, err)
	order, err := f.checkout.Checkout(ctx, user, CheckoutRequest{})
	require.NoError(t, err)
	return order, scarf
}

func advance(t *testing.T, f *fixture, orderID uuid.UUID, events ...domain.OrderEvent) *domain.Order {
	t.Helper()
	var order *domain.Order
	var err error
	for _, e := range events {
		tr := domain.Transition{Event: e}
		if e == domain.EventShip {
			tr.TrackingNumber = "YK123456"
			tr.CargoCompany = "Yurtiçi Kargo"
		}
		order, err = f.orders.Transition(context.Background(), f.admin(), orderID, tr)
		require.NoError(t, err, "event %s", e)
	}
	return order
}

func TestOrderService_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.customer()
	order, _ := placeOrder(t, f, user, 1)

	_, err := f.orders.Transition(ctx, f.admin(), order.ID, domain.Transition{Event: domain.EventShip})
	requireKind(t, err, domain.KindInvalidTransition)

	advance(t, f, order.ID, domain.EventConfirmPayment, domain.EventStartPreparing)

	_, err = f.orders.Transition(ctx, f.admin(), order.ID, domain.Transition{Event: domain.EventShip, CargoCompany: "Aras"})
	requireKind(t, err, domain.KindPreconditionFailed)

	shipped := advance(t, f, order.ID, domain.EventShip)
	assert.Equal(t, "YK123456", shipped.TrackingNumber)
	assert.NotNil(t, shipped.ShippedAt)

	delivered := advance(t, f, order.ID, domain.EventDeliver)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.Status)
	require.Len(t, delivered.History, 5)
	assert.Equal(t, "Yurtiçi Kargo - YK123456", delivered.History[3].Note)

	mine, err := f.orders.GetMine(ctx, user, order.ID)
	require.NoError(t, err)
	assert.Len(t, mine.History, 5)
	assert.Equal(t, []domain.OrderStatus{
		domain.OrderStatusPaymentReceived,
		domain.OrderStatusPreparing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	}, f.notifier.changed)
}

func TestOrderService_CustomerPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.customer()
	stranger := f.customer()
	order, _ := placeOrder(t, f, owner, 1)

	_, err := f.orders.Transition(ctx, owner, order.ID, domain.Transition{Event: domain.EventConfirmPayment})
	requireKind(t, err, domain.KindForbidden)

	_, err = f.orders.GetMine(ctx, stranger, order.ID)
	requireKind(t, err, domain.KindNotFound)
	_, err = f.orders.Cancel(ctx, stranger, order.ID, "")
	requireKind(t, err, domain.KindNotFound)

	_, err = f.orders.Transition(ctx, f.admin(), order.ID, domain.Transition{Event: domain.EventRequestRefund})
	requireKind(t, err, domain.KindForbidden)

	_, err = f.orders.List(ctx, owner, OrderListQuery{})
	requireKind(t, err, domain.KindForbidden)

	page, err := f.orders.ListMine(ctx, stranger, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	page, err = f.orders.ListMine(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)
}

func TestOrderService_CancelAfterPaymentFlagsRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.customer()

	unpaid, _ := placeOrder(t, f, user, 1)
	cancelled, err := f.orders.Cancel(ctx, user, unpaid.ID, "Vazgeçtim")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.RefundPending)
	assert.Equal(t, "Vazgeçtim", cancelled.CancelReason)

	_, err = f.orders.Cancel(ctx, user, unpaid.ID, "")
	requireKind(t, err, domain.KindInvalidTransition)

	paid, _ := placeOrder(t, f, user, 1)
	advance(t, f, paid.ID, domain.EventConfirmPayment)
	cancelled, err = f.orders.Cancel(ctx, user, paid.ID, "")
	require.NoError(t, err)
	assert.True(t, cancelled.RefundPending)

	approved, err := f.orders.ApproveRefund(ctx, f.admin(), paid.ID)
	require.NoError(t, err)
	assert.False(t, approved.RefundPending)
	assert.NotNil(t, approved.RefundApprovedAt)
	assert.Equal(t, domain.OrderStatusCancelled, approved.Status)
	last := approved.History[len(approved.History)-1]
	assert.Equal(t, refundApprovedNote, last.Note)
	assert.Equal(t, domain.OrderStatusCancelled, last.Status)

	_, err = f.orders.ApproveRefund(ctx, f.admin(), paid.ID)
	requireKind(t, err, domain.KindPreconditionFailed)
}

func TestOrderService_RefundWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.customer()

	late, _ := placeOrder(t, f, user, 1)
	advance(t, f, late.ID, domain.EventConfirmPayment, domain.EventStartPreparing, domain.EventShip, domain.EventDeliver)
	f.clock.Advance(15 * 24 * time.Hour)
	_, err := f.orders.RequestRefund(ctx, user, late.ID, "Renk farklı")
	requireKind(t, err, domain.KindPreconditionFailed)

	onTime, _ := placeOrder(t, f, user, 1)
	advance(t, f, onTime.ID, domain.EventConfirmPayment, domain.EventStartPreparing, domain.EventShip, domain.EventDeliver)
	f.clock.Advance(3 * 24 * time.Hour)
	refunded, err := f.orders.RequestRefund(ctx, user, onTime.ID, "Renk farklı")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, refunded.Status)
	assert.True(t, refunded.RefundPending)
	assert.Equal(t, "Renk farklı", refunded.RefundReason)
}

func TestOrderService_RestockPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("default keeps stock", func(t *testing.T) {
		f := newFixture(t)
		user := f.customer()
		order, scarf := placeOrder(t, f, user, 3)
		_, err := f.orders.Cancel(ctx, user, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 7, f.stock(t, scarf.ID))
	})

	t.Run("restock on cancel", func(t *testing.T) {
		f := newFixture(t, withRestock(true, false))
		user := f.customer()
		order, scarf := placeOrder(t, f, user, 3)
		_, err := f.orders.Cancel(ctx, user, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, 10, f.stock(t, scarf.ID))
	})

	t.Run("deleted product is skipped", func(t *testing.T) {
		f := newFixture(t, withRestock(true, false))
		user := f.customer()
		order, scarf := placeOrder(t, f, user, 3)
		require.NoError(t, f.products.Delete(ctx, f.admin(), scarf.ID))
		_, err := f.orders.Cancel(ctx, user, order.ID, "")
		require.NoError(t, err)
	})
}

func TestOrderService_AdminListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.customer()
	first, _ := placeOrder(t, f, user, 1)
	placeOrder(t, f, user, 1)
	advance(t, f, first.ID, domain.EventConfirmPayment)

	paid := domain.OrderStatusPaymentReceived
	page, err := f.orders.List(ctx, f.admin(), OrderListQuery{Status: &paid})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, first.ID, page.Items[0].ID)

	all, err := f.orders.List(ctx, f.admin(), OrderListQuery{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, MaxPageSize, all.PageSize)

	bogus := domain.OrderStatus("lost")
	_, err = f.orders.List(ctx, f.admin(), OrderListQuery{Status: &bogus})
	requireKind(t, err, domain.KindValidation)

	got, err := f.orders.Get(ctx, f.admin(), first.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 2)

	_, err = f.orders.Get(ctx, f.admin(), uuid.New())
	requireKind(t, err, domain.KindNotFound)
}

// Random event sequences must only ever produce statuses reachable through
// the transition table, and every history entry must match a legal step.
func TestProperty_OrderOnlyMovesThroughLegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	events := []domain.OrderEvent{
		domain.EventConfirmPayment,
		domain.EventStartPreparing,
		domain.EventShip,
		domain.EventDeliver,
		domain.EventCancel,
	}
	user := f.customer()

	properties := gopter.NewProperties(nil)
	properties.Property("history follows the table", prop.ForAll(
		func(picks []int) bool {
			order, _ := placeOrder(t, f, user, 1)
			for _, p := range picks {
				tr := domain.Transition{Event: events[p], TrackingNumber: "T1", CargoCompany: "PTT"}
				_, _ = f.orders.Transition(ctx, f.admin(), order.ID, tr)
			}

			got, err := f.orders.Get(ctx, f.admin(), order.ID)
			if err != nil {
				return false
			}
			prev := domain.OrderStatusPending
			for _, h := range got.History[1:] {
				legal := false
				for _, e := range domain.AllowedEvents(prev) {
					if to, _ := domain.NextStatus(prev, e); to == h.Status {
						legal = true
					}
				}
				if !legal {
					return false
				}
				prev = h.Status
			}
			return prev == got.Status
		},
		gen.SliceOf(gen.IntRange(0, len(events)-1)),
	))

	properties.TestingRun(t)
}

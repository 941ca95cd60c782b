package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/notification"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const refundApprovedNote = "İade onaylandı"

// OrderListQuery filters the admin order list.
type OrderListQuery struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// OrderService runs orders through their lifecycle.
type OrderService interface {
	ListMine(ctx context.Context, id domain.Identity, page, pageSize int) (*Page[*domain.Order], error)
	GetMine(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, id domain.Identity, orderID uuid.UUID, reason string) (*domain.Order, error)
	RequestRefund(ctx context.Context, id domain.Identity, orderID uuid.UUID, reason string) (*domain.Order, error)
	TrackGuest(ctx context.Context, orderNumber, email string) (*domain.Order, error)

	List(ctx context.Context, id domain.Identity, q OrderListQuery) (*Page[*domain.Order], error)
	Get(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	Transition(ctx context.Context, id domain.Identity, orderID uuid.UUID, t domain.Transition) (*domain.Order, error)
	ApproveRefund(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	orders   repository.OrderRepository
	tx       repository.Transactor
	notifier notification.Notifier
	cfg      config.OrderConfig
	clock    Clock
	logger   *zap.Logger
}

// NewOrderService creates an OrderService.
func NewOrderService(orders repository.OrderRepository, tx repository.Transactor, notifier notification.Notifier, cfg config.OrderConfig, clock Clock, logger *zap.Logger) OrderService {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	if cfg.RefundWindow <= 0 {
		cfg.RefundWindow = 14 * 24 * time.Hour
	}
	return &orderService{orders: orders, tx: tx, notifier: notifier, cfg: cfg, clock: orClock(clock), logger: logger}
}

func (s *orderService) ListMine(ctx context.Context, id domain.Identity, page, pageSize int) (*Page[*domain.Order], error) {
	page, size := normalizePage(page, pageSize)
	orders, total, err := s.orders.ListByUser(ctx, id.UserID, page, size)
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Order]{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *orderService) GetMine(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(id.UserID) {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, id domain.Identity, orderID uuid.UUID, reason string) (*domain.Order, error) {
	return s.transition(ctx, id, orderID, domain.Transition{Event: domain.EventCancel, Reason: reason}, true)
}

func (s *orderService) RequestRefund(ctx context.Context, id domain.Identity, orderID uuid.UUID, reason string) (*domain.Order, error) {
	return s.transition(ctx, id, orderID, domain.Transition{Event: domain.EventRequestRefund, Reason: reason}, true)
}

// TrackGuest finds a guest order by its number. The e-mail must match, so
// order numbers alone reveal nothing.
func (s *orderService) TrackGuest(ctx context.Context, orderNumber, email string) (*domain.Order, error) {
	order, err := s.orders.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		return nil, translate(err)
	}
	if order.UserID != nil || !strings.EqualFold(order.CustomerEmail, strings.TrimSpace(email)) {
		return nil, domain.ErrOrderNotFound
	}
	if order.History, err = s.orders.History(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, id domain.Identity, q OrderListQuery) (*Page[*domain.Order], error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, domain.Validation(map[string]string{"status": "Geçersiz sipariş durumu"})
	}
	page, size := normalizePage(q.Page, q.PageSize)
	orders, total, err := s.orders.List(ctx, repository.OrderFilter{Status: q.Status, Page: page, PageSize: size})
	if err != nil {
		return nil, err
	}
	return &Page[*domain.Order]{Items: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *orderService) Get(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

// Transition applies an admin event. Refund requests belong to customers.
func (s *orderService) Transition(ctx context.Context, id domain.Identity, orderID uuid.UUID, t domain.Transition) (*domain.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if t.Event == domain.EventRequestRefund {
		return nil, domain.ErrForbidden
	}
	return s.transition(ctx, id, orderID, t, false)
}

// ApproveRefund settles a pending refund and records it in the history
// without changing the status.
func (s *orderService) ApproveRefund(ctx context.Context, id domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return translate(err)
		}

		now := s.clock()
		if err := order.ApproveRefund(now); err != nil {
			return err
		}
		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}
		entry := domain.StatusHistoryEntry{OrderID: order.ID, Status: order.Status, Note: refundApprovedNote, CreatedAt: now}
		if err := repos.Orders.AppendHistory(ctx, entry); err != nil {
			return err
		}
		order.History, err = repos.Orders.History(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refund approved",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("admin_id", id.UserID.String()),
	)
	return order, nil
}

func (s *orderService) transition(ctx context.Context, id domain.Identity, orderID uuid.UUID, t domain.Transition, owned bool) (*domain.Order, error) {
	var order *domain.Order
	var restocked bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return translate(err)
		}
		if owned && !order.OwnedBy(id.UserID) {
			return domain.ErrOrderNotFound
		}

		entry, err := order.Apply(t, s.clock(), s.cfg.RefundWindow)
		if err != nil {
			return err
		}
		if err := repos.Orders.Update(ctx, order); err != nil {
			return err
		}
		if err := repos.Orders.AppendHistory(ctx, entry); err != nil {
			return err
		}

		if domain.ReleasesStock(order.Status, s.cfg.RestockOnCancel, s.cfg.RestockOnRefund) {
			if err := restock(ctx, repos.Products, order.Items); err != nil {
				return err
			}
			restocked = true
		}

		order.History, err = repos.Orders.History(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("event", string(t.Event)),
		zap.String("status", string(order.Status)),
		zap.Bool("restocked", restocked),
	)

	if err := s.notifier.OrderStatusChanged(ctx, order); err != nil {
		s.logger.Warn("Failed to send status notification", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	return order, nil
}

func (s *orderService) load(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, translate(err)
	}
	if order.History, err = s.orders.History(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return order, nil
}

// restock hands the items back to inventory. Products deleted since the order
// was placed are skipped.
func restock(ctx context.Context, products repository.ProductRepository, items []domain.OrderItem) error {
	for _, item := range items {
		err := products.IncrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
			return fmt.Errorf("failed to restock product: %w", err)
		}
	}
	return nil
}

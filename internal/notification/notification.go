// Package notification sends order e-mails. Delivery is best effort: callers
// never fail or retry because a message could not be sent.
package notification

import (
	"context"
	"sync"
	"time"

	"ipek-store/internal/domain"

	"go.uber.org/zap"
)

// Notifier tells a customer about their order.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, order *domain.Order) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, *domain.Order) error        { return nil }
func (Nop) OrderStatusChanged(context.Context, *domain.Order) error { return nil }

// Async hands notifications to a background goroutine with its own timeout.
// Failures are logged at warn level and otherwise dropped.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps next. A zero timeout means ten seconds.
func NewAsync(next Notifier, timeout time.Duration, logger *zap.Logger) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, timeout: timeout, logger: logger}
}

func (a *Async) OrderPlaced(_ context.Context, order *domain.Order) error {
	a.dispatch("order_placed", order, a.next.OrderPlaced)
	return nil
}

func (a *Async) OrderStatusChanged(_ context.Context, order *domain.Order) error {
	a.dispatch("order_status_changed", order, a.next.OrderStatusChanged)
	return nil
}

// Wait blocks until every dispatched notification has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) dispatch(kind string, order *domain.Order, send func(context.Context, *domain.Order) error) {
	// The request context is gone once the handler returns.
	snapshot := *order
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := send(ctx, &snapshot); err != nil {
			a.logger.Warn("Failed to send notification",
				zap.String("kind", kind),
				zap.String("order_id", snapshot.ID.String()),
				zap.String("order_number", snapshot.OrderNumber),
				zap.Error(err),
			)
			return
		}
		a.logger.Debug("Notification sent",
			zap.String("kind", kind),
			zap.String("order_number", snapshot.OrderNumber),
		)
	}()
}

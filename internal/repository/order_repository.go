package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// OrderRepository defines the interface for order data access. Orders are
// never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	AppendHistory(ctx context.Context, entry domain.StatusHistoryEntry) error
	History(ctx context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, guest_session_id, customer_email, items, subtotal,
	discount_code, discount_amount, shipping_fee, total_price, address, notes, status,
	tracking_number, cargo_company, payment_received_at, preparing_at, shipped_at, delivered_at,
	cancelled_at, refund_requested_at, refund_approved_at, cancel_reason, refund_reason,
	refund_pending, created_at, updated_at`

// Create inserts the order together with the history entries it carries.
// Callers run it inside the checkout transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encode order address: %w", err)
	}

	var userID interface{}
	if order.UserID != nil {
		userID = *order.UserID
	}

	query := `
		INSERT INTO orders (id, order_number, user_id, guest_session_id, customer_email, items, subtotal,
			discount_code, discount_amount, shipping_fee, total_price, address, notes, status,
			refund_pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		userID,
		nullString(order.GuestSessionID),
		order.CustomerEmail,
		string(items),
		order.Subtotal,
		nullString(order.DiscountCode),
		order.DiscountAmount,
		order.ShippingFee,
		order.Total,
		string(address),
		nullString(order.Notes),
		order.Status,
		order.RefundPending,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, entry := range order.History {
		if err := r.AppendHistory(ctx, entry); err != nil {
			return err
		}
	}

	return nil
}

// Update persists the lifecycle fields. Items, amounts and the address
// snapshot are immutable once placed.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2, tracking_number = $3, cargo_company = $4,
		    payment_received_at = $5, preparing_at = $6, shipped_at = $7, delivered_at = $8,
		    cancelled_at = $9, refund_requested_at = $10, refund_approved_at = $11,
		    cancel_reason = $12, refund_reason = $13, refund_pending = $14, updated_at = $15
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		nullString(order.TrackingNumber),
		nullString(order.CargoCompany),
		nullTime(order.PaymentReceivedAt),
		nullTime(order.PreparingAt),
		nullTime(order.ShippedAt),
		nullTime(order.DeliveredAt),
		nullTime(order.CancelledAt),
		nullTime(order.RefundRequestedAt),
		nullTime(order.RefundApprovedAt),
		nullString(order.CancelReason),
		nullString(order.RefundReason),
		order.RefundPending,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return expectOneRow(result, ErrOrderNotFound)
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindByIDForUpdate locks the order row until the transaction ends.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
}

// ListByUser returns the user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	orders, err := r.queryOrders(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// List is the admin view with an optional status filter.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, *filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) AppendHistory(ctx context.Context, entry domain.StatusHistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, new_status, notes, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.OrderID, entry.Status, nullString(entry.Note), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append order history: %w", err)
	}
	return nil
}

// History returns the audit trail oldest first.
func (r *orderRepository) History(ctx context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, new_status, COALESCE(notes, ''), created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	defer rows.Close()

	history := []domain.StatusHistoryEntry{}
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(&entry.OrderID, &entry.Status, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}
		history = append(history, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order history: %w", err)
	}
	return history, nil
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		userID                                         uuid.NullUUID
		guestSession, discountCode, notes              sql.NullString
		tracking, cargo, cancelReason, refundReason    sql.NullString
		items, address                                 []byte
		paymentAt, preparingAt, shippedAt, deliveredAt sql.NullTime
		cancelledAt, refundRequestedAt, refundApproved sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&userID,
		&guestSession,
		&order.CustomerEmail,
		&items,
		&order.Subtotal,
		&discountCode,
		&order.DiscountAmount,
		&order.ShippingFee,
		&order.Total,
		&address,
		&notes,
		&order.Status,
		&tracking,
		&cargo,
		&paymentAt,
		&preparingAt,
		&shippedAt,
		&deliveredAt,
		&cancelledAt,
		&refundRequestedAt,
		&refundApproved,
		&cancelReason,
		&refundReason,
		&order.RefundPending,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(address, &order.Address); err != nil {
		return nil, fmt.Errorf("failed to decode order address: %w", err)
	}

	if userID.Valid {
		id := userID.UUID
		order.UserID = &id
	}
	order.GuestSessionID = guestSession.String
	order.DiscountCode = discountCode.String
	order.Notes = notes.String
	order.TrackingNumber = tracking.String
	order.CargoCompany = cargo.String
	order.CancelReason = cancelReason.String
	order.RefundReason = refundReason.String
	order.PaymentReceivedAt = timePtr(paymentAt)
	order.PreparingAt = timePtr(preparingAt)
	order.ShippedAt = timePtr(shippedAt)
	order.DeliveredAt = timePtr(deliveredAt)
	order.CancelledAt = timePtr(cancelledAt)
	order.RefundRequestedAt = timePtr(refundRequestedAt)
	order.RefundApprovedAt = timePtr(refundApproved)

	return order, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

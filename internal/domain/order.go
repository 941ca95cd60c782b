package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaymentReceived OrderStatus = "payment_received"
	OrderStatusPreparing       OrderStatus = "preparing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentReceived,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the Turkish name shown to customers.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "Sipariş alındı"
	case OrderStatusPaymentReceived:
		return "Ödeme alındı"
	case OrderStatusPreparing:
		return "Hazırlanıyor"
	case OrderStatusShipped:
		return "Kargoya verildi"
	case OrderStatusDelivered:
		return "Teslim edildi"
	case OrderStatusCancelled:
		return "İptal edildi"
	case OrderStatusRefunded:
		return "İade talebi alındı"
	}
	return string(s)
}

// OrderEvent triggers a transition.
type OrderEvent string

const (
	EventConfirmPayment OrderEvent = "confirm_payment"
	EventStartPreparing OrderEvent = "start_preparing"
	EventShip           OrderEvent = "ship"
	EventDeliver        OrderEvent = "deliver"
	EventCancel         OrderEvent = "cancel"
	EventRequestRefund  OrderEvent = "request_refund"
)

// transitions is the complete lifecycle table. Anything absent is illegal.
var transitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	OrderStatusPending: {
		EventConfirmPayment: OrderStatusPaymentReceived,
		EventCancel:         OrderStatusCancelled,
	},
	OrderStatusPaymentReceived: {
		EventStartPreparing: OrderStatusPreparing,
		EventCancel:         OrderStatusCancelled,
	},
	OrderStatusPreparing: {
		EventShip:   OrderStatusShipped,
		EventCancel: OrderStatusCancelled,
	},
	OrderStatusShipped: {
		EventDeliver: OrderStatusDelivered,
	},
	OrderStatusDelivered: {
		EventRequestRefund: OrderStatusRefunded,
	},
}

// NextStatus looks up the table. ok is false for illegal transitions.
func NextStatus(from OrderStatus, event OrderEvent) (OrderStatus, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// AllowedEvents lists the events legal in status s.
func AllowedEvents(s OrderStatus) []OrderEvent {
	events := make([]OrderEvent, 0, 2)
	for _, e := range []OrderEvent{EventConfirmPayment, EventStartPreparing, EventShip, EventDeliver, EventCancel, EventRequestRefund} {
		if _, ok := transitions[s][e]; ok {
			events = append(events, e)
		}
	}
	return events
}

// OrderItem is the product snapshot taken at checkout. It is never mutated.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal is unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddressSnapshot is the delivery address copied onto the order.
type AddressSnapshot struct {
	Title        string `json:"title,omitempty"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	District     string `json:"district"`
	Neighborhood string `json:"neighborhood,omitempty"`
	AddressLine  string `json:"address_line"`
	PostalCode   string `json:"postal_code,omitempty"`
}

// StatusHistoryEntry is one row of the append-only audit trail.
type StatusHistoryEntry struct {
	OrderID   uuid.UUID   `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Order is a placed order. UserID is nil for guest orders.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"order_number"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	GuestSessionID string          `json:"guest_session_id,omitempty"`
	CustomerEmail  string          `json:"customer_email"`
	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   string          `json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total_price"`
	Address        AddressSnapshot `json:"address"`
	Notes          string          `json:"notes,omitempty"`
	Status         OrderStatus     `json:"status"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
	CargoCompany   string          `json:"cargo_company,omitempty"`

	PaymentReceivedAt *time.Time `json:"payment_received_at,omitempty"`
	PreparingAt       *time.Time `json:"preparing_at,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	RefundRequestedAt *time.Time `json:"refund_requested_at,omitempty"`
	RefundApprovedAt  *time.Time `json:"refund_approved_at,omitempty"`

	CancelReason  string `json:"cancel_reason,omitempty"`
	RefundReason  string `json:"refund_reason,omitempty"`
	RefundPending bool   `json:"refund_pending"`

	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	History   []StatusHistoryEntry `json:"history,omitempty"`
}

// NewOrder builds a pending order and its first history entry. Total is
// derived, never supplied.
func NewOrder(items []OrderItem, subtotal, discount, shipping decimal.Decimal, now time.Time) *Order {
	o := &Order{
		ID:             uuid.New(),
		OrderNumber:    NewOrderNumber(now),
		Items:          items,
		Subtotal:       Round2(subtotal),
		DiscountAmount: Round2(discount),
		ShippingFee:    Round2(shipping),
		Status:         OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.Total = OrderTotal(o.Subtotal, o.DiscountAmount, o.ShippingFee)
	o.History = []StatusHistoryEntry{{OrderID: o.ID, Status: OrderStatusPending, CreatedAt: now}}
	return o
}

// NewOrderNumber returns a human-friendly order number such as
// IPK-261019-3F2A9C1B.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("IPK-%s-%s", now.Format("060102"), suffix)
}

// OwnedBy reports whether the order belongs to userID.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// Transition carries the event and its payload.
type Transition struct {
	Event          OrderEvent
	TrackingNumber string
	CargoCompany   string
	Reason         string
	Note           string
}

// Apply moves the order through one legal transition, stamps the matching
// timestamp and returns the history entry to append.
func (o *Order) Apply(t Transition, now time.Time, refundWindow time.Duration) (StatusHistoryEntry, error) {
	to, ok := NextStatus(o.Status, t.Event)
	if !ok {
		return StatusHistoryEntry{}, NewError(KindInvalidTransition,
			fmt.Sprintf("'%s' durumundaki sipariş için bu işlem yapılamaz", o.Status.Label())).
			WithDetail("status", string(o.Status)).
			WithDetail("event", string(t.Event))
	}

	note := strings.TrimSpace(t.Note)
	switch t.Event {
	case EventConfirmPayment:
		o.PaymentReceivedAt = &now
	case EventStartPreparing:
		o.PreparingAt = &now
	case EventShip:
		tracking := strings.TrimSpace(t.TrackingNumber)
		carrier := strings.TrimSpace(t.CargoCompany)
		if tracking == "" || carrier == "" {
			return StatusHistoryEntry{}, ErrTrackingRequired
		}
		o.TrackingNumber = tracking
		o.CargoCompany = carrier
		o.ShippedAt = &now
		if note == "" {
			note = fmt.Sprintf("%s - %s", carrier, tracking)
		}
	case EventDeliver:
		o.DeliveredAt = &now
	case EventCancel:
		// Payment already taken means the customer is owed money back.
		if o.PaymentReceivedAt != nil {
			o.RefundPending = true
		}
		o.CancelReason = strings.TrimSpace(t.Reason)
		o.CancelledAt = &now
		if note == "" {
			note = o.CancelReason
		}
	case EventRequestRefund:
		if o.DeliveredAt == nil || now.Sub(*o.DeliveredAt) > refundWindow {
			return StatusHistoryEntry{}, ErrRefundWindowEnded
		}
		o.RefundReason = strings.TrimSpace(t.Reason)
		o.RefundRequestedAt = &now
		o.RefundPending = true
		if note == "" {
			note = o.RefundReason
		}
	}

	o.Status = to
	o.UpdatedAt = now
	entry := StatusHistoryEntry{OrderID: o.ID, Status: to, Note: note, CreatedAt: now}
	o.History = append(o.History, entry)
	return entry, nil
}

// ApproveRefund settles a pending refund. It does not change the status.
func (o *Order) ApproveRefund(now time.Time) error {
	if !o.RefundPending {
		return NewError(KindPreconditionFailed, "Bu sipariş için bekleyen bir iade yok")
	}
	o.RefundPending = false
	o.RefundApprovedAt = &now
	o.UpdatedAt = now
	return nil
}

// ReleasesStock reports whether moving into status s hands the items back to
// inventory under the given policy.
func ReleasesStock(s OrderStatus, restockOnCancel, restockOnRefund bool) bool {
	switch s {
	case OrderStatusCancelled:
		return restockOnCancel
	case OrderStatusRefunded:
		return restockOnRefund
	}
	return false
}

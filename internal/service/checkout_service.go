package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/notification"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutRequest places an order from the caller's persisted cart. The
// delivery address is AddressID, else Address, else the default address.
type CheckoutRequest struct {
	AddressID  *uuid.UUID
	Address    *domain.Address
	CouponCode string
	Notes      string
}

// GuestCheckoutRequest places an order for a shopper without an account.
type GuestCheckoutRequest struct {
	Contact    domain.GuestCheckout
	Lines      []domain.CartLine
	CouponCode string
}

// CheckoutService turns carts into orders.
type CheckoutService interface {
	Checkout(ctx context.Context, id domain.Identity, req CheckoutRequest) (*domain.Order, error)
	GuestCheckout(ctx context.Context, req GuestCheckoutRequest) (*domain.Order, error)
	SaveGuestContact(ctx context.Context, contact domain.GuestCheckout) (*domain.GuestCheckout, error)
}

type checkoutService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	notifier notification.Notifier
	policy   couponPolicy
	shipping config.ShippingDefaults
	clock    Clock
	logger   *zap.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(
	repos repository.Repositories,
	tx repository.Transactor,
	notifier notification.Notifier,
	coupons config.CouponConfig,
	shipping config.ShippingDefaults,
	clock Clock,
	logger *zap.Logger,
) CheckoutService {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	return &checkoutService{
		repos:    repos,
		tx:       tx,
		notifier: notifier,
		policy:   newCouponPolicy(coupons),
		shipping: shipping,
		clock:    orClock(clock),
		logger:   logger,
	}
}

// placement is everything place needs besides the transaction.
type placement struct {
	cart     *domain.Cart
	code     string
	reserved bool
	email    string
	userID   *uuid.UUID
	session  string
	address  domain.AddressSnapshot
	notes    string
}

func (s *checkoutService) Checkout(ctx context.Context, id domain.Identity, req CheckoutRequest) (*domain.Order, error) {
	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Carts.Lock(ctx, id.UserID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, id.UserID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		address, err := resolveAddress(ctx, repos.Addresses, id, req)
		if err != nil {
			return err
		}

		code := domain.NormalizeCouponCode(req.CouponCode)
		if code == "" {
			code = domain.NormalizeCouponCode(cart.CouponCode)
		}
		held := s.policy.reservesOnApply() && cart.CouponCode != "" && strings.EqualFold(code, cart.CouponCode)

		// The slot taken for the cart's code is not going to be used.
		if s.policy.reservesOnApply() && cart.CouponCode != "" && !held {
			if err := releaseCoupon(ctx, repos.Coupons, cart.CouponCode); err != nil {
				return err
			}
		}

		userID := id.UserID
		order, err = s.place(ctx, repos, placement{
			cart:     cart,
			code:     code,
			reserved: held,
			email:    id.Email,
			userID:   &userID,
			address:  address,
			notes:    strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}
		return repos.Carts.Clear(ctx, id.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.placed(ctx, order)
	return order, nil
}

// GuestCheckout records the contact details first; they survive even when
// the order itself fails.
func (s *checkoutService) GuestCheckout(ctx context.Context, req GuestCheckoutRequest) (*domain.Order, error) {
	contact, err := s.SaveGuestContact(ctx, req.Contact)
	if err != nil {
		return nil, err
	}

	cart := domain.NewGuestCart(req.Lines)
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	var order *domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = s.place(ctx, repos, placement{
			cart:    cart,
			code:    domain.NormalizeCouponCode(req.CouponCode),
			email:   contact.Email,
			session: contact.SessionID,
			address: contact.Snapshot(),
			notes:   contact.OrderNotes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.placed(ctx, order)
	return order, nil
}

// SaveGuestContact upserts the guest's contact record. The last write for a
// session wins.
func (s *checkoutService) SaveGuestContact(ctx context.Context, contact domain.GuestCheckout) (*domain.GuestCheckout, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	contact.CreatedAt = s.clock()
	if err := s.repos.GuestCheckouts.Upsert(ctx, &contact); err != nil {
		return nil, fmt.Errorf("failed to save guest checkout: %w", err)
	}
	return &contact, nil
}

// place runs the order-creation steps against transaction-bound repositories.
// Product rows stay locked until the transaction ends.
func (s *checkoutService) place(ctx context.Context, repos repository.Repositories, p placement) (*domain.Order, error) {
	products, err := repos.Products.LockByIDs(ctx, p.cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	items := make([]domain.OrderItem, 0, len(p.cart.Lines))
	subtotal := decimal.Zero
	for _, line := range p.cart.Lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound.WithDetail("product_id", line.ProductID.String())
		}
		if line.Quantity > product.Stock {
			return nil, domain.InsufficientStock(product.Name, product.Stock)
		}
		item := domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			Image:     product.MainImage(),
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = domain.Round2(subtotal)

	now := s.clock()
	discount := decimal.Zero
	var couponCode string
	if p.code != "" {
		coupon, err := repos.Coupons.FindByCode(ctx, p.code)
		if err != nil {
			return nil, translate(err)
		}
		discount, err = coupon.Evaluate(subtotal, now, p.email, p.reserved)
		if err != nil {
			return nil, err
		}
		if !p.reserved {
			if err := repos.Coupons.Reserve(ctx, coupon.Code); err != nil {
				return nil, translate(err)
			}
		}
		couponCode = coupon.Code
	}

	settings, err := loadShipping(ctx, repos.Settings, s.shipping, s.clock)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(items, subtotal, discount, settings.ShippingFee(subtotal), now)
	order.UserID = p.userID
	order.GuestSessionID = p.session
	order.CustomerEmail = strings.ToLower(strings.TrimSpace(p.email))
	order.DiscountCode = couponCode
	order.Address = p.address
	order.Notes = p.notes

	for _, item := range items {
		if err := repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, domain.InsufficientStock(item.Name, byID[item.ProductID].Stock)
			}
			return nil, err
		}
	}

	if err := repos.Orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// resolveAddress prefers a saved address by ID, then an inline address,
// then the user's default.
func resolveAddress(ctx context.Context, addresses repository.AddressRepository, id domain.Identity, req CheckoutRequest) (domain.AddressSnapshot, error) {
	switch {
	case req.AddressID != nil:
		address, err := addresses.FindByID(ctx, id.UserID, *req.AddressID)
		if err != nil {
			return domain.AddressSnapshot{}, translate(err)
		}
		return address.Snapshot(), nil
	case req.Address != nil:
		address := *req.Address
		if err := address.Validate(); err != nil {
			return domain.AddressSnapshot{}, err
		}
		return address.Snapshot(), nil
	}

	saved, err := addresses.ListByUser(ctx, id.UserID)
	if err != nil {
		return domain.AddressSnapshot{}, err
	}
	for _, a := range saved {
		if a.IsDefault {
			return a.Snapshot(), nil
		}
	}
	return domain.AddressSnapshot{}, domain.Validation(map[string]string{"address": "Teslimat adresi seçin"})
}

func (s *checkoutService) placed(ctx context.Context, order *domain.Order) {
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Bool("guest", order.UserID == nil),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("coupon", order.DiscountCode),
	)
	if err := s.notifier.OrderPlaced(ctx, order); err != nil {
		s.logger.Warn("Failed to send order notification", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLineView is a cart line joined with the current product data.
type CartLineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the priced cart shown to the shopper. Discount and shipping are
// recomputed from current prices every time.
type CartView struct {
	Lines       []CartLineView  `json:"lines"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	Discount    decimal.Decimal `json:"discount"`
	CouponError string          `json:"coupon_error,omitempty"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
}

// CartService manages the persisted cart of a signed-in user.
type CartService interface {
	Get(ctx context.Context, id domain.Identity) (*CartView, error)
	AddItem(ctx context.Context, id domain.Identity, productID uuid.UUID, qty int) (*CartView, error)
	SetQuantity(ctx context.Context, id domain.Identity, productID uuid.UUID, qty int) (*CartView, error)
	RemoveItem(ctx context.Context, id domain.Identity, productID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, id domain.Identity) error
	MergeGuest(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error
}

type cartService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	policy   couponPolicy
	shipping config.ShippingDefaults
	clock    Clock
	logger   *zap.Logger
}

// NewCartService creates a CartService.
func NewCartService(repos repository.Repositories, tx repository.Transactor, coupons config.CouponConfig, shipping config.ShippingDefaults, clock Clock, logger *zap.Logger) CartService {
	return &cartService{
		repos:    repos,
		tx:       tx,
		policy:   newCouponPolicy(coupons),
		shipping: shipping,
		clock:    orClock(clock),
		logger:   logger,
	}
}

func (s *cartService) Get(ctx context.Context, id domain.Identity) (*CartView, error) {
	cart, err := s.repos.Carts.Get(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.repos, cart, id.Email)
}

// AddItem adds qty of a product. The resulting line may not exceed stock.
func (s *cartService) AddItem(ctx context.Context, id domain.Identity, productID uuid.UUID, qty int) (*CartView, error) {
	if qty < 1 {
		qty = 1
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return translate(err)
		}
		if err := repos.Carts.Lock(ctx, id.UserID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, id.UserID)
		if err != nil {
			return err
		}

		cart.AddItem(productID, qty)
		line, _ := cart.Line(productID)
		if line.Quantity > product.Stock {
			return domain.InsufficientStock(product.Name, product.Stock)
		}
		return repos.Carts.SetLine(ctx, id.UserID, productID, line.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetQuantity sets the absolute quantity; zero or below removes the line.
func (s *cartService) SetQuantity(ctx context.Context, id domain.Identity, productID uuid.UUID, qty int) (*CartView, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, id, productID)
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return translate(err)
		}
		if err := repos.Carts.Lock(ctx, id.UserID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, id.UserID)
		if err != nil {
			return err
		}
		if err := cart.SetQuantity(productID, qty, product.Stock, product.Name); err != nil {
			return err
		}
		return repos.Carts.SetLine(ctx, id.UserID, productID, qty)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *cartService) RemoveItem(ctx context.Context, id domain.Identity, productID uuid.UUID) (*CartView, error) {
	if err := s.repos.Carts.RemoveLine(ctx, id.UserID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Clear empties the cart and drops its coupon, giving back a reserved slot.
func (s *cartService) Clear(ctx context.Context, id domain.Identity) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Carts.Lock(ctx, id.UserID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, id.UserID)
		if err != nil {
			return err
		}
		if cart.CouponCode != "" && s.policy.reservesOnApply() {
			if err := releaseCoupon(ctx, repos.Coupons, cart.CouponCode); err != nil {
				return err
			}
		}
		return repos.Carts.Clear(ctx, id.UserID)
	})
}

// MergeGuest folds client-held lines into the persisted cart. Products that
// no longer exist are dropped silently.
func (s *cartService) MergeGuest(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error {
	guest := domain.NewGuestCart(lines)
	if guest.IsEmpty() {
		return nil
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		products, err := repos.Products.FindByIDs(ctx, guest.ProductIDs())
		if err != nil {
			return err
		}
		known := make(map[uuid.UUID]bool, len(products))
		for _, p := range products {
			known[p.ID] = true
		}

		if err := repos.Carts.Lock(ctx, userID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, userID)
		if err != nil {
			return err
		}
		for _, l := range guest.Lines {
			if !known[l.ProductID] {
				continue
			}
			cart.AddItem(l.ProductID, l.Quantity)
			merged, _ := cart.Line(l.ProductID)
			if err := repos.Carts.SetLine(ctx, userID, l.ProductID, merged.Quantity); err != nil {
				return err
			}
		}
		s.logger.Debug("Guest cart merged", zap.String("user_id", userID.String()), zap.Int("lines", len(guest.Lines)))
		return nil
	})
}

// view prices the cart. A coupon that no longer applies is reported in
// CouponError instead of failing the whole read.
func (s *cartService) view(ctx context.Context, repos repository.Repositories, cart *domain.Cart, email string) (*CartView, error) {
	products, err := repos.Products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	prices := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		byID[p.ID] = p
		prices[p.ID] = p.Price
	}

	v := &CartView{Lines: make([]CartLineView, 0, len(cart.Lines)), CouponCode: cart.CouponCode}
	for _, l := range cart.Lines {
		p, ok := byID[l.ProductID]
		if !ok {
			continue
		}
		v.Lines = append(v.Lines, CartLineView{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.MainImage(),
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			Stock:     p.Stock,
			LineTotal: domain.Round2(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))),
		})
		v.ItemCount += l.Quantity
	}
	v.Subtotal = cart.Total(prices)
	v.Discount = decimal.Zero

	if cart.CouponCode != "" {
		coupon, err := repos.Coupons.FindByCode(ctx, cart.CouponCode)
		switch {
		case err == nil:
			reserved := s.policy.reservesOnApply()
			discount, evalErr := coupon.Evaluate(v.Subtotal, s.clock(), email, reserved)
			if evalErr != nil {
				v.CouponError = evalErr.Error()
				var de *domain.Error
				if errors.As(evalErr, &de) {
					v.CouponError = de.Message
				}
			} else {
				v.Discount = discount
			}
		case errors.Is(err, repository.ErrCouponNotFound):
			v.CouponError = domain.ErrCouponNotFound.Message
		default:
			return nil, err
		}
	}

	settings, err := loadShipping(ctx, repos.Settings, s.shipping, s.clock)
	if err != nil {
		return nil, err
	}
	v.ShippingFee = domain.Round2(settings.ShippingFee(v.Subtotal))
	if len(v.Lines) == 0 {
		v.ShippingFee = decimal.Zero
	}
	v.Total = domain.OrderTotal(v.Subtotal, v.Discount, v.ShippingFee)
	return v, nil
}

// releaseCoupon gives back a usage slot. A coupon deleted in the meantime has
// nothing to give back.
func releaseCoupon(ctx context.Context, coupons repository.CouponRepository, code string) error {
	if err := coupons.Release(ctx, code); err != nil && !errors.Is(err, repository.ErrCouponNotFound) {
		return fmt.Errorf("failed to release coupon: %w", err)
	}
	return nil
}

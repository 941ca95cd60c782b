package service

import (
	"context"
	"strings"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponQuote is the outcome of applying or previewing a code.
type CouponQuote struct {
	Code     string          `json:"code"`
	Percent  int             `json:"discount_percent"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
}

// CouponInput is what an admin submits for a coupon.
type CouponInput struct {
	Code            string
	DiscountPercent int
	ValidUntil      time.Time
	MinPurchase     decimal.Decimal
	MaxUsage        int
	IsActive        bool
	Scope           domain.CouponScope
	TargetEmail     string
}

// CouponService applies codes to carts and manages the coupon catalog.
type CouponService interface {
	Apply(ctx context.Context, id domain.Identity, code string) (*CouponQuote, error)
	Remove(ctx context.Context, id domain.Identity) error
	Preview(ctx context.Context, code string, subtotal decimal.Decimal, email string) (*CouponQuote, error)

	Create(ctx context.Context, id domain.Identity, in CouponInput) (*domain.Coupon, error)
	Update(ctx context.Context, id domain.Identity, couponID uuid.UUID, in CouponInput) (*domain.Coupon, error)
	Delete(ctx context.Context, id domain.Identity, couponID uuid.UUID) error
	List(ctx context.Context, id domain.Identity) ([]*domain.Coupon, error)
}

type couponService struct {
	repos  repository.Repositories
	tx     repository.Transactor
	policy couponPolicy
	clock  Clock
	logger *zap.Logger
}

// NewCouponService creates a CouponService.
func NewCouponService(repos repository.Repositories, tx repository.Transactor, cfg config.CouponConfig, clock Clock, logger *zap.Logger) CouponService {
	return &couponService{repos: repos, tx: tx, policy: newCouponPolicy(cfg), clock: orClock(clock), logger: logger}
}

// Apply evaluates code against the caller's cart and stores it on the cart.
// In apply mode the usage slot is taken here; re-applying the code the cart
// already holds does not take a second one.
func (s *couponService) Apply(ctx context.Context, id domain.Identity, code string) (*CouponQuote, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, domain.ErrCouponNotFound
	}

	var quote *CouponQuote
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		coupon, err := repos.Coupons.FindByCode(ctx, code)
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
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		subtotal, err := cartSubtotal(ctx, repos.Products, cart)
		if err != nil {
			return err
		}

		held := s.policy.reservesOnApply() && strings.EqualFold(cart.CouponCode, coupon.Code)
		discount, err := coupon.Evaluate(subtotal, s.clock(), id.Email, held)
		if err != nil {
			return err
		}

		if s.policy.reservesOnApply() && !held {
			if err := repos.Coupons.Reserve(ctx, coupon.Code); err != nil {
				return translate(err)
			}
			if cart.CouponCode != "" {
				if err := releaseCoupon(ctx, repos.Coupons, cart.CouponCode); err != nil {
					return err
				}
			}
		}

		if err := repos.Carts.SetCoupon(ctx, id.UserID, coupon.Code); err != nil {
			return err
		}

		quote = &CouponQuote{Code: coupon.Code, Percent: coupon.DiscountPercent, Subtotal: subtotal, Discount: discount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Coupon applied",
		zap.String("user_id", id.UserID.String()),
		zap.String("code", quote.Code),
		zap.String("discount", quote.Discount.StringFixed(2)),
	)
	return quote, nil
}

// Remove detaches the cart's coupon, giving back a reserved slot.
func (s *couponService) Remove(ctx context.Context, id domain.Identity) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Carts.Lock(ctx, id.UserID); err != nil {
			return err
		}
		cart, err := repos.Carts.Get(ctx, id.UserID)
		if err != nil {
			return err
		}
		if cart.CouponCode == "" {
			return nil
		}
		if s.policy.reservesOnApply() {
			if err := releaseCoupon(ctx, repos.Coupons, cart.CouponCode); err != nil {
				return err
			}
		}
		return repos.Carts.SetCoupon(ctx, id.UserID, "")
	})
}

// Preview evaluates a code without touching any state. Guests use it to see
// the discount before checking out.
func (s *couponService) Preview(ctx context.Context, code string, subtotal decimal.Decimal, email string) (*CouponQuote, error) {
	coupon, err := s.repos.Coupons.FindByCode(ctx, domain.NormalizeCouponCode(code))
	if err != nil {
		return nil, translate(err)
	}
	subtotal = domain.Round2(subtotal)
	discount, err := coupon.Evaluate(subtotal, s.clock(), email, false)
	if err != nil {
		return nil, err
	}
	return &CouponQuote{Code: coupon.Code, Percent: coupon.DiscountPercent, Subtotal: subtotal, Discount: discount}, nil
}

func (s *couponService) Create(ctx context.Context, id domain.Identity, in CouponInput) (*domain.Coupon, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	now := s.clock()
	coupon := &domain.Coupon{ID: uuid.New(), CreatedAt: now}
	fill(coupon, in, now)
	if err := coupon.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Coupons.Create(ctx, coupon); err != nil {
		return nil, translate(err)
	}
	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("scope", string(coupon.Scope)))
	return coupon, nil
}

// Update replaces the editable fields. UsageCount is kept.
func (s *couponService) Update(ctx context.Context, id domain.Identity, couponID uuid.UUID, in CouponInput) (*domain.Coupon, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	coupon, err := s.repos.Coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, translate(err)
	}
	fill(coupon, in, s.clock())
	if err := coupon.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Coupons.Update(ctx, coupon); err != nil {
		return nil, translate(err)
	}
	return coupon, nil
}

func (s *couponService) Delete(ctx context.Context, id domain.Identity, couponID uuid.UUID) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	return translate(s.repos.Coupons.Delete(ctx, couponID))
}

func (s *couponService) List(ctx context.Context, id domain.Identity) ([]*domain.Coupon, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.repos.Coupons.List(ctx)
}

func fill(c *domain.Coupon, in CouponInput, now time.Time) {
	c.Code = domain.NormalizeCouponCode(in.Code)
	c.DiscountPercent = in.DiscountPercent
	c.ValidUntil = in.ValidUntil
	c.MinPurchase = domain.Round2(in.MinPurchase)
	c.MaxUsage = in.MaxUsage
	c.IsActive = in.IsActive
	c.Scope = in.Scope
	if c.Scope == "" {
		c.Scope = domain.CouponScopeGeneral
	}
	c.TargetEmail = strings.ToLower(strings.TrimSpace(in.TargetEmail))
	if !c.Scope.Targeted() {
		c.TargetEmail = ""
	}
	c.UpdatedAt = now
}

// cartSubtotal prices the cart at current product prices.
func cartSubtotal(ctx context.Context, products repository.ProductRepository, cart *domain.Cart) (decimal.Decimal, error) {
	list, err := products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return decimal.Zero, err
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(list))
	for _, p := range list {
		prices[p.ID] = p.Price
	}
	return cart.Total(prices), nil
}

package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponScope decides who may redeem a coupon.
type CouponScope string

const (
	CouponScopeGeneral  CouponScope = "general"
	CouponScopePersonal CouponScope = "personal"
	CouponScopeWinBack  CouponScope = "winback"
)

// Targeted reports whether the scope restricts the coupon to one e-mail.
func (s CouponScope) Targeted() bool {
	return s == CouponScopePersonal || s == CouponScopeWinBack
}

// Coupon is a percentage discount code.
type Coupon struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Code            string          `json:"code" db:"code"`
	DiscountPercent int             `json:"discount_percent" db:"discount_percent"`
	ValidUntil      time.Time       `json:"valid_until" db:"valid_until"`
	MinPurchase     decimal.Decimal `json:"min_purchase" db:"min_purchase"`
	MaxUsage        int             `json:"max_usage" db:"max_usage"`
	UsageCount      int             `json:"usage_count" db:"usage_count"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	Scope           CouponScope     `json:"scope" db:"scope"`
	TargetEmail     string          `json:"target_email,omitempty" db:"target_email"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// NormalizeCouponCode makes codes comparable: trimmed and upper-cased.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exhausted reports whether every redemption slot is taken. An exhausted
// coupon is inert whatever its active flag says.
func (c *Coupon) Exhausted() bool {
	return c.UsageCount >= c.MaxUsage
}

// Evaluate applies the redemption rules in order and returns the discount for
// subtotal. reserved is true when the caller already holds a usage slot for
// this code, in which case the usage bound was enforced at reservation time.
func (c *Coupon) Evaluate(subtotal decimal.Decimal, now time.Time, email string, reserved bool) (decimal.Decimal, error) {
	if !c.IsActive {
		return decimal.Zero, ErrCouponNotFound
	}
	if c.ValidUntil.Before(now) {
		return decimal.Zero, ErrCouponExpired
	}
	if c.Scope.Targeted() && !strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(c.TargetEmail)) {
		return decimal.Zero, ErrCouponNotForYou
	}
	if subtotal.LessThan(c.MinPurchase) {
		return decimal.Zero, CouponBelowMinimum(c.MinPurchase.StringFixed(2))
	}
	if !reserved && c.Exhausted() {
		return decimal.Zero, ErrCouponUsedUp
	}
	return c.Discount(subtotal), nil
}

// Discount is subtotal * percent / 100 rounded to 2 decimals.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(decimal.NewFromInt(int64(c.DiscountPercent))).Div(hundred))
}

// Validate checks admin input.
func (c *Coupon) Validate() error {
	fields := map[string]string{}
	if NormalizeCouponCode(c.Code) == "" {
		fields["code"] = "Kupon kodu zorunludur"
	}
	if c.DiscountPercent < 1 || c.DiscountPercent > 100 {
		fields["discount_percent"] = "İndirim oranı 1 ile 100 arasında olmalıdır"
	}
	if c.MaxUsage < 1 {
		fields["max_usage"] = "Kullanım limiti en az 1 olmalıdır"
	}
	if c.UsageCount < 0 || c.UsageCount > c.MaxUsage {
		fields["usage_count"] = "Kullanım sayısı limit aralığında olmalıdır"
	}
	if c.MinPurchase.IsNegative() {
		fields["min_purchase"] = "Minimum tutar negatif olamaz"
	}
	if c.ValidUntil.IsZero() {
		fields["valid_until"] = "Geçerlilik tarihi zorunludur"
	}
	switch c.Scope {
	case CouponScopeGeneral:
	case CouponScopePersonal, CouponScopeWinBack:
		if _, err := mail.ParseAddress(c.TargetEmail); err != nil {
			fields["target_email"] = "Kişiye özel kuponlar için geçerli bir e-posta gerekir"
		}
	default:
		fields["scope"] = "Geçersiz kupon kapsamı"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

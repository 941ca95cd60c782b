package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponCodeTaken = errors.New("coupon code already exists")
)

// CouponRepository defines the interface for coupon data access
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	Update(ctx context.Context, coupon *domain.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	List(ctx context.Context) ([]*domain.Coupon, error)
	Reserve(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

type couponRepository struct {
	db DBTX
}

// NewCouponRepository creates a new instance of CouponRepository
func NewCouponRepository(db DBTX) CouponRepository {
	return &couponRepository{db: db}
}

const couponColumns = `id, code, discount_percent, valid_until, min_purchase, max_usage, usage_count,
	is_active, scope, COALESCE(target_email, ''), created_at, updated_at`

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_percent, valid_until, min_purchase, max_usage, usage_count,
			is_active, scope, target_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		coupon.ID,
		coupon.Code,
		coupon.DiscountPercent,
		coupon.ValidUntil,
		coupon.MinPurchase,
		coupon.MaxUsage,
		coupon.UsageCount,
		coupon.IsActive,
		coupon.Scope,
		nullString(coupon.TargetEmail),
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_coupons_code_lower") {
			return ErrCouponCodeTaken
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

// Update rewrites the admin-editable fields. usage_count belongs to
// Reserve and Release and is never written here.
func (r *couponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	query := `
		UPDATE coupons
		SET code = $2, discount_percent = $3, valid_until = $4, min_purchase = $5, max_usage = $6,
		    is_active = $7, scope = $8, target_email = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		coupon.ID,
		coupon.Code,
		coupon.DiscountPercent,
		coupon.ValidUntil,
		coupon.MinPurchase,
		coupon.MaxUsage,
		coupon.IsActive,
		coupon.Scope,
		nullString(coupon.TargetEmail),
		coupon.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_coupons_code_lower") {
			return ErrCouponCodeTaken
		}
		return fmt.Errorf("failed to update coupon: %w", err)
	}

	return expectOneRow(result, ErrCouponNotFound)
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return expectOneRow(result, ErrCouponNotFound)
}

func (r *couponRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByCode matches case-insensitively
func (r *couponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE LOWER(code) = LOWER($1)`
	return r.findOne(ctx, query, domain.NormalizeCouponCode(code))
}

func (r *couponRepository) List(ctx context.Context) ([]*domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []*domain.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

// Reserve claims one usage slot. The conditional update makes concurrent
// reservations of the last slot race safely: only one of them matches.
func (r *couponRepository) Reserve(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE LOWER(code) = LOWER($1) AND usage_count < max_usage
	`, domain.NormalizeCouponCode(code))
	if err != nil {
		return fmt.Errorf("failed to reserve coupon: %w", err)
	}
	return expectOneRow(result, ErrCouponExhausted)
}

// Release gives a slot back, never going below zero.
func (r *couponRepository) Release(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET usage_count = usage_count - 1, updated_at = NOW()
		WHERE LOWER(code) = LOWER($1) AND usage_count > 0
	`, domain.NormalizeCouponCode(code))
	if err != nil {
		return fmt.Errorf("failed to release coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Coupon, error) {
	coupon, err := scanCoupon(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	return coupon, nil
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	coupon := &domain.Coupon{}
	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountPercent,
		&coupon.ValidUntil,
		&coupon.MinPurchase,
		&coupon.MaxUsage,
		&coupon.UsageCount,
		&coupon.IsActive,
		&coupon.Scope,
		&coupon.TargetEmail,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

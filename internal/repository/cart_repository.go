package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ipek-store/internal/domain"

	"github.com/google/uuid"
)

// CartRepository persists authenticated carts. Guest carts never reach it.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	SetLine(ctx context.Context, userID, productID uuid.UUID, qty int) error
	RemoveLine(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	SetCoupon(ctx context.Context, userID uuid.UUID, code string) error
	Lock(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

// Get loads the cart, returning an empty one when the user has none yet.
func (r *cartRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}

	var coupon sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT coupon_code FROM carts WHERE user_id = $1`, userID).Scan(&coupon)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	cart.CouponCode = coupon.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at, product_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return cart, nil
}

// SetLine writes the absolute quantity for one product.
func (r *cartRepository) SetLine(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if err := r.touch(ctx, userID); err != nil {
		return err
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT ON CONSTRAINT uq_cart_items_user_product
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`, userID, productID, qty, now)
	if err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveLine(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear drops every line and the applied coupon.
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE carts SET coupon_code = NULL, updated_at = $2 WHERE user_id = $1`, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to clear cart coupon: %w", err)
	}
	return nil
}

// SetCoupon stores the applied code; "" removes it.
func (r *cartRepository) SetCoupon(ctx context.Context, userID uuid.UUID, code string) error {
	var value interface{}
	if code != "" {
		value = code
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, coupon_code, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET coupon_code = EXCLUDED.coupon_code, updated_at = EXCLUDED.updated_at
	`, userID, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save cart coupon: %w", err)
	}
	return nil
}

// Lock creates the cart row if needed and holds it FOR UPDATE until the
// transaction ends. Callers take it before Get so a second writer re-reads
// the cart after the first one commits.
func (r *cartRepository) Lock(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	var locked uuid.UUID
	err = r.db.QueryRowContext(ctx, `SELECT user_id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&locked)
	if err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	return nil
}

func (r *cartRepository) touch(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

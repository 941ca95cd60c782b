package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ipek-store/internal/domain"
)

var ErrGuestCheckoutNotFound = errors.New("guest checkout not found")

// GuestCheckoutRepository stores guest contact details by session id.
type GuestCheckoutRepository interface {
	Upsert(ctx context.Context, guest *domain.GuestCheckout) error
	FindBySession(ctx context.Context, sessionID string) (*domain.GuestCheckout, error)
}

type guestCheckoutRepository struct {
	db DBTX
}

// NewGuestCheckoutRepository creates a new instance of GuestCheckoutRepository
func NewGuestCheckoutRepository(db DBTX) GuestCheckoutRepository {
	return &guestCheckoutRepository{db: db}
}

// Upsert writes the record; the last write for a session wins. created_at
// keeps the first write.
func (r *guestCheckoutRepository) Upsert(ctx context.Context, guest *domain.GuestCheckout) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO guest_checkouts (session_id, email, full_name, phone, city, district, neighborhood,
			address_line, postal_code, order_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			city = EXCLUDED.city,
			district = EXCLUDED.district,
			neighborhood = EXCLUDED.neighborhood,
			address_line = EXCLUDED.address_line,
			postal_code = EXCLUDED.postal_code,
			order_notes = EXCLUDED.order_notes
	`,
		guest.SessionID,
		guest.Email,
		guest.FullName,
		guest.Phone,
		guest.City,
		guest.District,
		nullString(guest.Neighborhood),
		guest.AddressLine,
		nullString(guest.PostalCode),
		nullString(guest.OrderNotes),
		guest.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save guest checkout: %w", err)
	}
	return nil
}

func (r *guestCheckoutRepository) FindBySession(ctx context.Context, sessionID string) (*domain.GuestCheckout, error) {
	guest := &domain.GuestCheckout{}
	err := r.db.QueryRowContext(ctx, `
		SELECT session_id, email, full_name, phone, city, district, COALESCE(neighborhood, ''),
			address_line, COALESCE(postal_code, ''), COALESCE(order_notes, ''), created_at
		FROM guest_checkouts
		WHERE session_id = $1
	`, sessionID).Scan(
		&guest.SessionID,
		&guest.Email,
		&guest.FullName,
		&guest.Phone,
		&guest.City,
		&guest.District,
		&guest.Neighborhood,
		&guest.AddressLine,
		&guest.PostalCode,
		&guest.OrderNotes,
		&guest.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to find guest checkout: %w", err)
	}
	return guest, nil
}

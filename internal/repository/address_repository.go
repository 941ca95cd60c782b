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
	ErrAddressNotFound        = errors.New("address not found")
	ErrDefaultAddressConflict = errors.New("another default address was set concurrently")
)

// AddressRepository defines the interface for address book data access
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	Update(ctx context.Context, address *domain.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
	PromoteLatest(ctx context.Context, userID uuid.UUID) error
}

type addressRepository struct {
	db DBTX
}

// NewAddressRepository creates a new instance of AddressRepository
func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepository{db: db}
}

const addressColumns = `id, user_id, title, full_name, phone, city, district, COALESCE(neighborhood, ''),
	address_line, COALESCE(postal_code, ''), is_default, created_at, updated_at`

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, title, full_name, phone, city, district, neighborhood,
			address_line, postal_code, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		address.ID,
		address.UserID,
		address.Title,
		address.FullName,
		address.Phone,
		address.City,
		address.District,
		nullString(address.Neighborhood),
		address.AddressLine,
		nullString(address.PostalCode),
		address.IsDefault,
		address.CreatedAt,
		address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

// Update rewrites the contact fields. The default flag only moves through
// SetDefault and PromoteLatest.
func (r *addressRepository) Update(ctx context.Context, address *domain.Address) error {
	query := `
		UPDATE addresses
		SET title = $3, full_name = $4, phone = $5, city = $6, district = $7, neighborhood = $8,
		    address_line = $9, postal_code = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		address.ID,
		address.UserID,
		address.Title,
		address.FullName,
		address.Phone,
		address.City,
		address.District,
		nullString(address.Neighborhood),
		address.AddressLine,
		nullString(address.PostalCode),
		address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return expectOneRow(result, ErrAddressNotFound)
}

func (r *addressRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return expectOneRow(result, ErrAddressNotFound)
}

// FindByID only finds addresses owned by userID.
func (r *addressRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}
	return address, nil
}

// ListByUser returns the default address first, then newest first.
func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC, id`
	return r.queryAddresses(ctx, query, userID)
}

// LockByUser reads the address book with row locks so default changes for
// one user are serialized. The owning user row is locked first so an empty
// address book is serialized too.
func (r *addressRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	var owner uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`, userID).Scan(&owner)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock address owner: %w", err)
	}

	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1
		ORDER BY id
		FOR UPDATE`
	return r.queryAddresses(ctx, query, userID)
}

// SetDefault makes id the user's only default. The old default is cleared
// first because the partial unique index is checked row by row.
func (r *addressRepository) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default AND id <> $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to clear default address: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE addresses SET is_default = TRUE WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_addresses_one_default") {
			return ErrDefaultAddressConflict
		}
		return fmt.Errorf("failed to set default address: %w", err)
	}
	return expectOneRow(result, ErrAddressNotFound)
}

// PromoteLatest makes the most recently created address the default. It is a
// no-op for an empty address book.
func (r *addressRepository) PromoteLatest(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE addresses SET is_default = TRUE
		WHERE id = (
			SELECT id FROM addresses WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to promote default address: %w", err)
	}
	return nil
}

func (r *addressRepository) queryAddresses(ctx context.Context, query string, args ...interface{}) ([]*domain.Address, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}
	return addresses, nil
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	address := &domain.Address{}
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.Title,
		&address.FullName,
		&address.Phone,
		&address.City,
		&address.District,
		&address.Neighborhood,
		&address.AddressLine,
		&address.PostalCode,
		&address.IsDefault,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return address, nil
}

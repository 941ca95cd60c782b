package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ipek-store/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Users          UserRepository
	RefreshTokens  RefreshTokenRepository
	Categories     CategoryRepository
	Products       ProductRepository
	Carts          CartRepository
	Coupons        CouponRepository
	Addresses      AddressRepository
	Orders         OrderRepository
	GuestCheckouts GuestCheckoutRepository
	Settings       SettingsRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		RefreshTokens:  NewRefreshTokenRepository(db),
		Categories:     NewCategoryRepository(db),
		Products:       NewProductRepository(db),
		Carts:          NewCartRepository(db),
		Coupons:        NewCouponRepository(db),
		Addresses:      NewAddressRepository(db),
		Orders:         NewOrderRepository(db),
		GuestCheckouts: NewGuestCheckoutRepository(db),
		Settings:       NewSettingsRepository(db),
	}
}

// Transactor runs a unit of work atomically. fn receives repositories bound
// to the transaction; returning an error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type sqlTransactor struct {
	db *sql.DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return database.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation on
// the named constraint or index ("" matches any).
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	// Fallback for drivers that only expose the message.
	return err != nil && strings.Contains(err.Error(), "SQLSTATE 23505") &&
		(constraint == "" || strings.Contains(err.Error(), constraint))
}

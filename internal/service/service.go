package service

import (
	"errors"
	"time"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository"
)

// Clock returns the current time. Tests pass a fixed clock.
type Clock func() time.Time

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func orClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// translate maps repository sentinels onto user-facing errors. Anything it
// does not recognise is returned unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrProductNotFound):
		return domain.ErrProductNotFound
	case errors.Is(err, repository.ErrCategoryNotFound):
		return domain.ErrCategoryNotFound
	case errors.Is(err, repository.ErrOrderNotFound):
		return domain.ErrOrderNotFound
	case errors.Is(err, repository.ErrAddressNotFound):
		return domain.ErrAddressNotFound
	case errors.Is(err, repository.ErrCouponNotFound):
		return domain.ErrCouponNotFound
	case errors.Is(err, repository.ErrCouponExhausted):
		return domain.ErrCouponUsedUp
	case errors.Is(err, repository.ErrCouponCodeTaken):
		return domain.ErrCouponCodeTaken
	case errors.Is(err, repository.ErrUserAlreadyExists):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrDefaultAddressConflict):
		return domain.NewError(domain.KindConflict, "Varsayılan adres aynı anda değiştirildi, lütfen tekrar deneyin")
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		return domain.NewError(domain.KindConflict, "Bu isimde bir kategori zaten var")
	}
	return err
}

func requireAdmin(id domain.Identity) error {
	if !id.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// couponPolicy decides when a coupon usage slot is taken.
type couponPolicy struct {
	mode string
}

func newCouponPolicy(cfg config.CouponConfig) couponPolicy {
	if cfg.Reservation == config.CouponReserveOnCheckout {
		return couponPolicy{mode: config.CouponReserveOnCheckout}
	}
	return couponPolicy{mode: config.CouponReserveOnApply}
}

// reservesOnApply reports whether applying a code to a cart takes the slot.
func (p couponPolicy) reservesOnApply() bool {
	return p.mode == config.CouponReserveOnApply
}

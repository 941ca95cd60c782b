package service

import (
	"context"

	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddressService manages a user's address book. Every operation is scoped to
// the caller; someone else's address reads as not found.
type AddressService interface {
	List(ctx context.Context, id domain.Identity) ([]*domain.Address, error)
	Add(ctx context.Context, id domain.Identity, address domain.Address) (*domain.Address, error)
	Update(ctx context.Context, id domain.Identity, addressID uuid.UUID, patch domain.AddressPatch) (*domain.Address, error)
	Remove(ctx context.Context, id domain.Identity, addressID uuid.UUID) error
	SetDefault(ctx context.Context, id domain.Identity, addressID uuid.UUID) error
}

type addressService struct {
	addresses repository.AddressRepository
	tx        repository.Transactor
	clock     Clock
	logger    *zap.Logger
}

// NewAddressService creates an AddressService.
func NewAddressService(addresses repository.AddressRepository, tx repository.Transactor, clock Clock, logger *zap.Logger) AddressService {
	return &addressService{addresses: addresses, tx: tx, clock: orClock(clock), logger: logger}
}

func (s *addressService) List(ctx context.Context, id domain.Identity) ([]*domain.Address, error) {
	return s.addresses.ListByUser(ctx, id.UserID)
}

// Add stores a new address. The first address always becomes the default.
func (s *addressService) Add(ctx context.Context, id domain.Identity, address domain.Address) (*domain.Address, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	address.ID = uuid.New()
	address.UserID = id.UserID
	address.CreatedAt = now
	address.UpdatedAt = now
	wantDefault := address.IsDefault

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Addresses.LockByUser(ctx, id.UserID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			wantDefault = true
		}

		address.IsDefault = false
		if err := repos.Addresses.Create(ctx, &address); err != nil {
			return err
		}
		if wantDefault {
			if err := repos.Addresses.SetDefault(ctx, id.UserID, address.ID); err != nil {
				return translate(err)
			}
			address.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Address added",
		zap.String("user_id", id.UserID.String()),
		zap.String("address_id", address.ID.String()),
		zap.Bool("is_default", address.IsDefault),
	)
	return &address, nil
}

func (s *addressService) Update(ctx context.Context, id domain.Identity, addressID uuid.UUID, patch domain.AddressPatch) (*domain.Address, error) {
	address, err := s.addresses.FindByID(ctx, id.UserID, addressID)
	if err != nil {
		return nil, translate(err)
	}

	patch.ApplyTo(address)
	if err := address.Validate(); err != nil {
		return nil, err
	}
	address.UpdatedAt = s.clock()

	if err := s.addresses.Update(ctx, address); err != nil {
		return nil, translate(err)
	}
	return address, nil
}

// Remove deletes an address. Removing the default promotes the most recently
// created remaining address in the same transaction.
func (s *addressService) Remove(ctx context.Context, id domain.Identity, addressID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Addresses.LockByUser(ctx, id.UserID)
		if err != nil {
			return err
		}

		var target *domain.Address
		for _, a := range existing {
			if a.ID == addressID {
				target = a
				break
			}
		}
		if target == nil {
			return domain.ErrAddressNotFound
		}

		if err := repos.Addresses.Delete(ctx, id.UserID, addressID); err != nil {
			return translate(err)
		}
		if target.IsDefault && len(existing) > 1 {
			if err := repos.Addresses.PromoteLatest(ctx, id.UserID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *addressService) SetDefault(ctx context.Context, id domain.Identity, addressID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Addresses.LockByUser(ctx, id.UserID); err != nil {
			return err
		}
		return translate(repos.Addresses.SetDefault(ctx, id.UserID, addressID))
	})
}

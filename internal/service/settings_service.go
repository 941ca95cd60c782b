package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipek-store/internal/config"
	"ipek-store/internal/domain"
	"ipek-store/internal/repository"

	"go.uber.org/zap"
)

// SettingsService exposes the admin-editable store settings.
type SettingsService interface {
	Shipping(ctx context.Context) (*domain.ShippingSettings, error)
	UpdateShipping(ctx context.Context, id domain.Identity, settings domain.ShippingSettings) (*domain.ShippingSettings, error)
}

type settingsService struct {
	settings repository.SettingsRepository
	defaults config.ShippingDefaults
	clock    Clock
	logger   *zap.Logger
}

// NewSettingsService creates a SettingsService seeded from defaults.
func NewSettingsService(settings repository.SettingsRepository, defaults config.ShippingDefaults, clock Clock, logger *zap.Logger) SettingsService {
	return &settingsService{settings: settings, defaults: defaults, clock: orClock(clock), logger: logger}
}

func (s *settingsService) Shipping(ctx context.Context) (*domain.ShippingSettings, error) {
	return loadShipping(ctx, s.settings, s.defaults, s.clock)
}

func (s *settingsService) UpdateShipping(ctx context.Context, id domain.Identity, settings domain.ShippingSettings) (*domain.ShippingSettings, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settings.Fee = domain.Round2(settings.Fee)
	settings.FreeThreshold = domain.Round2(settings.FreeThreshold)
	settings.Carrier = strings.TrimSpace(settings.Carrier)
	settings.UpdatedAt = s.clock()

	if err := s.settings.SaveShipping(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to save shipping settings: %w", err)
	}

	s.logger.Info("Shipping settings updated",
		zap.String("user_id", id.UserID.String()),
		zap.Bool("enabled", settings.Enabled),
		zap.String("fee", settings.Fee.StringFixed(2)),
		zap.String("free_threshold", settings.FreeThreshold.StringFixed(2)),
	)
	return &settings, nil
}

// loadShipping reads the current settings, writing the configured defaults
// the first time. It works with transaction-bound repositories too.
func loadShipping(ctx context.Context, repo repository.SettingsRepository, defaults config.ShippingDefaults, clock Clock) (*domain.ShippingSettings, error) {
	settings, err := repo.GetShipping(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, fmt.Errorf("failed to load shipping settings: %w", err)
	}

	settings = &domain.ShippingSettings{
		Enabled:       defaults.Enabled,
		Fee:           defaults.Fee,
		FreeThreshold: defaults.FreeThreshold,
		Carrier:       defaults.Carrier,
		UpdatedAt:     clock(),
	}
	if err := repo.SaveShipping(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to seed shipping settings: %w", err)
	}
	return settings, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ipek-store/internal/domain"
)

var ErrSettingsNotFound = errors.New("settings not found")

const shippingSettingsKey = "shipping"

// SettingsRepository stores store-wide settings as JSON documents.
type SettingsRepository interface {
	GetShipping(ctx context.Context) (*domain.ShippingSettings, error)
	SaveShipping(ctx context.Context, settings *domain.ShippingSettings) error
}

type settingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetShipping(ctx context.Context) (*domain.ShippingSettings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM store_settings WHERE key = $1`, shippingSettingsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load shipping settings: %w", err)
	}

	settings := &domain.ShippingSettings{}
	if err := json.Unmarshal(raw, settings); err != nil {
		return nil, fmt.Errorf("failed to decode shipping settings: %w", err)
	}
	return settings, nil
}

func (r *settingsRepository) SaveShipping(ctx context.Context, settings *domain.ShippingSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode shipping settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO store_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, shippingSettingsKey, string(raw), settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save shipping settings: %w", err)
	}
	return nil
}

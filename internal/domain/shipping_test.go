package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestShippingFee(t *testing.T) {
	settings := ShippingSettings{
		Enabled:       true,
		Fee:           decimal.RequireFromString("29.90"),
		FreeThreshold: decimal.NewFromInt(500),
	}

	tests := []struct {
		name     string
		settings ShippingSettings
		subtotal string
		want     string
	}{
		{"below threshold pays flat fee", settings, "499.99", "29.90"},
		{"at threshold ships free", settings, "500.00", "0.00"},
		{"above threshold ships free", settings, "599.80", "0.00"},
		{"disabled never charges", ShippingSettings{Enabled: false, Fee: settings.Fee, FreeThreshold: settings.FreeThreshold}, "10.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.settings.ShippingFee(decimal.RequireFromString(tt.subtotal))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestShippingSettingsValidate(t *testing.T) {
	assert.NoError(t, ShippingSettings{Fee: decimal.Zero, FreeThreshold: decimal.Zero}.Validate())
	assert.Error(t, ShippingSettings{Fee: decimal.NewFromInt(-1)}.Validate())
}

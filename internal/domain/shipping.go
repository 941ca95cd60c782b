package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShippingSettings is the admin-editable shipping configuration. It is not
// versioned: orders keep the fee computed when they were placed.
type ShippingSettings struct {
	Enabled       bool            `json:"enabled"`
	Fee           decimal.Decimal `json:"fee"`
	FreeThreshold decimal.Decimal `json:"free_shipping_threshold"`
	Carrier       string          `json:"carrier"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ShippingFee returns the fee owed for subtotal under these settings.
func (s ShippingSettings) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if !s.Enabled {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(s.FreeThreshold) {
		return decimal.Zero
	}
	return s.Fee
}

// Validate rejects negative amounts.
func (s ShippingSettings) Validate() error {
	fields := map[string]string{}
	if s.Fee.IsNegative() {
		fields["fee"] = "Kargo ücreti negatif olamaz"
	}
	if s.FreeThreshold.IsNegative() {
		fields["free_shipping_threshold"] = "Ücretsiz kargo limiti negatif olamaz"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CategoryID  uuid.UUID       `json:"category_id" db:"category_id"`
	Images      []string        `json:"images" db:"images"`
	Stock       int             `json:"stock" db:"stock"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	ProductCount int       `json:"product_count"` // listings only
}

// Validate checks the catalog invariants: a name, a positive price and
// non-negative stock.
func (p *Product) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "Ürün adı zorunludur"
	}
	if !p.Price.IsPositive() {
		fields["price"] = "Fiyat sıfırdan büyük olmalıdır"
	}
	if p.Stock < 0 {
		fields["stock"] = "Stok negatif olamaz"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

// MainImage returns the first image or "".
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

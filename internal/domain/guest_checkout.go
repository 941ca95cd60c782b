package domain

import (
	"net/mail"
	"strings"
	"time"
)

// GuestCheckout is the contact and delivery information of a shopper without
// an account, keyed by the client-generated session id. Last write wins.
type GuestCheckout struct {
	SessionID    string    `json:"session_id" db:"session_id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        string    `json:"phone" db:"phone"`
	City         string    `json:"city" db:"city"`
	District     string    `json:"district" db:"district"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	AddressLine  string    `json:"address_line" db:"address_line"`
	PostalCode   string    `json:"postal_code" db:"postal_code"`
	OrderNotes   string    `json:"order_notes" db:"order_notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Validate normalizes and checks the record.
func (g *GuestCheckout) Validate() error {
	g.SessionID = strings.TrimSpace(g.SessionID)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.FullName = strings.TrimSpace(g.FullName)
	g.Phone = NormalizePhone(g.Phone)
	g.City = strings.TrimSpace(g.City)
	g.District = strings.TrimSpace(g.District)
	g.Neighborhood = strings.TrimSpace(g.Neighborhood)
	g.AddressLine = strings.TrimSpace(g.AddressLine)
	g.PostalCode = strings.TrimSpace(g.PostalCode)
	g.OrderNotes = strings.TrimSpace(g.OrderNotes)

	err := validateContact("", g.FullName, g.Phone, g.City, g.District, g.AddressLine, g.PostalCode, false)
	fields := map[string]string{}
	if de, ok := err.(*Error); ok {
		if f, ok := de.Details["fields"].(map[string]string); ok {
			fields = f
		}
	}
	if g.SessionID == "" {
		fields["session_id"] = "Oturum kimliği zorunludur"
	}
	if _, perr := mail.ParseAddress(g.Email); perr != nil {
		fields["email"] = "Geçerli bir e-posta adresi girin"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

// Snapshot copies the delivery-relevant fields for an order.
func (g *GuestCheckout) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		FullName:     g.FullName,
		Phone:        g.Phone,
		City:         g.City,
		District:     g.District,
		Neighborhood: g.Neighborhood,
		AddressLine:  g.AddressLine,
		PostalCode:   g.PostalCode,
	}
}

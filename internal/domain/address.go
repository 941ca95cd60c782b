package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	turkishMobileRegex = regexp.MustCompile(`^(\+90|0)?5\d{9}$`)
	postalCodeRegex    = regexp.MustCompile(`^\d{5}$`)
	phoneNoise         = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// NormalizePhone strips spaces, dashes, dots and parentheses.
func NormalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// ValidTurkishMobile reports whether phone is a Turkish mobile number once
// normalized, e.g. "0532 123 45 67" or "+905321234567".
func ValidTurkishMobile(phone string) bool {
	return turkishMobileRegex.MatchString(NormalizePhone(phone))
}

// Address is a shipping address in a user's address book.
type Address struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Title        string    `json:"title" db:"title"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        string    `json:"phone" db:"phone"`
	City         string    `json:"city" db:"city"`
	District     string    `json:"district" db:"district"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	AddressLine  string    `json:"address_line" db:"address_line"`
	PostalCode   string    `json:"postal_code" db:"postal_code"`
	IsDefault    bool      `json:"is_default" db:"is_default"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AddressPatch carries the fields an update may change. Nil means unchanged.
type AddressPatch struct {
	Title        *string `json:"title"`
	FullName     *string `json:"full_name"`
	Phone        *string `json:"phone"`
	City         *string `json:"city"`
	District     *string `json:"district"`
	Neighborhood *string `json:"neighborhood"`
	AddressLine  *string `json:"address_line"`
	PostalCode   *string `json:"postal_code"`
}

// ApplyTo copies the set fields onto a.
func (p AddressPatch) ApplyTo(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Title, p.Title)
	set(&a.FullName, p.FullName)
	set(&a.Phone, p.Phone)
	set(&a.City, p.City)
	set(&a.District, p.District)
	set(&a.Neighborhood, p.Neighborhood)
	set(&a.AddressLine, p.AddressLine)
	set(&a.PostalCode, p.PostalCode)
}

// Normalize trims every field and reduces the phone to digits and '+'.
func (a *Address) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = NormalizePhone(a.Phone)
	a.City = strings.TrimSpace(a.City)
	a.District = strings.TrimSpace(a.District)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.AddressLine = strings.TrimSpace(a.AddressLine)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
}

// Validate normalizes and checks the address fields.
func (a *Address) Validate() error {
	a.Normalize()
	return validateContact(a.Title, a.FullName, a.Phone, a.City, a.District, a.AddressLine, a.PostalCode, true)
}

// Snapshot copies the delivery-relevant fields for an order.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Title:        a.Title,
		FullName:     a.FullName,
		Phone:        a.Phone,
		City:         a.City,
		District:     a.District,
		Neighborhood: a.Neighborhood,
		AddressLine:  a.AddressLine,
		PostalCode:   a.PostalCode,
	}
}

func validateContact(title, fullName, phone, city, district, line, postal string, titleRequired bool) error {
	fields := map[string]string{}
	if titleRequired && title == "" {
		fields["title"] = "Adres başlığı zorunludur"
	}
	if fullName == "" {
		fields["full_name"] = "Ad soyad zorunludur"
	}
	if phone == "" {
		fields["phone"] = "Telefon numarası zorunludur"
	} else if !turkishMobileRegex.MatchString(phone) {
		fields["phone"] = "Geçerli bir cep telefonu numarası girin (05XX XXX XX XX)"
	}
	if city == "" {
		fields["city"] = "İl zorunludur"
	}
	if district == "" {
		fields["district"] = "İlçe zorunludur"
	}
	if line == "" {
		fields["address_line"] = "Açık adres zorunludur"
	}
	if postal != "" && !postalCodeRegex.MatchString(postal) {
		fields["postal_code"] = "Posta kodu 5 haneli olmalıdır"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}

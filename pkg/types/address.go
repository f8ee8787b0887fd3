package types

import "strings"

// ShippingAddress is the recipient block captured on an order.
type ShippingAddress struct {
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Address    string `json:"address" validate:"required"`
	Province   string `json:"province" validate:"required,max=100"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=10"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Name:       strings.TrimSpace(a.Name),
		Phone:      strings.TrimSpace(a.Phone),
		Address:    strings.TrimSpace(a.Address),
		Province:   strings.TrimSpace(a.Province),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// SplitName breaks a full name into first and last parts on the first space.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	idx := strings.Index(full, " ")
	if idx < 0 {
		return full, ""
	}
	return full[:idx], strings.TrimSpace(full[idx+1:])
}

package midtrans

import "encoding/json"

const CountryCodeIndonesia = "IDN"

// Item names longer than this are rejected by Snap.
const maxItemNameLength = 50

type SnapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
}

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	BillingAddress  *Address `json:"billing_address,omitempty"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

type ItemDetail struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// NewItem builds an item line, clipping the name to what Snap accepts.
func NewItem(id, name string, price int64, quantity int) ItemDetail {
	runes := []rune(name)
	if len(runes) > maxItemNameLength {
		name = string(runes[:maxItemNameLength])
	}
	return ItemDetail{ID: id, Price: price, Quantity: quantity, Name: name}
}

// SnapResponse is the 201 body. Raw keeps the full payload for auditing.
type SnapResponse struct {
	Token       string
	RedirectURL string
	Raw         json.RawMessage
}

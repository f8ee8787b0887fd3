package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/types"
)

// Order is the aggregate root for a customer purchase.
type Order struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                 uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Status                 enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalPrice             decimal.Decimal      `gorm:"column:total_price;type:numeric(12,2);not null"`
	ShippingCost           decimal.Decimal      `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	Discount               decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	FinalPrice             decimal.Decimal      `gorm:"column:final_price;type:numeric(12,2);not null"`
	ShippingName           string               `gorm:"column:shipping_name;not null"`
	ShippingPhone          string               `gorm:"column:shipping_phone;not null"`
	ShippingAddress        string               `gorm:"column:shipping_address;not null"`
	ShippingProvince       string               `gorm:"column:shipping_province;not null"`
	ShippingCity           string               `gorm:"column:shipping_city;not null"`
	ShippingPostalCode     string               `gorm:"column:shipping_postal_code;not null"`
	ShippingCourier        *string              `gorm:"column:shipping_courier"`
	ShippingTrackingNumber *string              `gorm:"column:shipping_tracking_number"`
	PaymentMethod          *string              `gorm:"column:payment_method"`
	PaymentDetails         types.JSONMap        `gorm:"column:payment_details;type:jsonb"`
	PaidAt                 *time.Time           `gorm:"column:paid_at"`
	ShippedAt              *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt            *time.Time           `gorm:"column:delivered_at"`
	CancelledAt            *time.Time           `gorm:"column:cancelled_at"`
	Items                  []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transactions           []PaymentTransaction `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a frozen snapshot of a variant at purchase time.
type OrderItem struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	VariantID     *uuid.UUID       `gorm:"column:variant_id;type:uuid"`
	ProductName   string           `gorm:"column:product_name;not null"`
	VariantName   string           `gorm:"column:variant_name;not null"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	Quantity      int              `gorm:"column:quantity;not null"`
	Subtotal      decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// UnitPrice is the price actually charged per unit.
func (i OrderItem) UnitPrice() decimal.Decimal {
	if i.DiscountPrice != nil {
		return *i.DiscountPrice
	}
	return i.Price
}

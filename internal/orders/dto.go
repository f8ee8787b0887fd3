package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/pagination"
	"github.com/angelmondragon/tokoflow-backend/pkg/types"
)

// LineInput requests quantity units of one variant.
type LineInput struct {
	VariantID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	Shipping      types.ShippingAddress
	Lines         []LineInput
	PaymentMethod *string
}

// ShippingCostInput sets the courier and cost on a pending order.
type ShippingCostInput struct {
	Cost    decimal.Decimal
	Courier string
}

// StatusUpdateInput is a staff fulfilment move.
type StatusUpdateInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
}

// ListParams are the inputs accepted by Service.List.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// ListFilters narrow the repository listing.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
}

// OrderList is one page of orders.
type OrderList = pagination.Page[OrderDTO]

// OrderItemDTO is the API view of an order item.
type OrderItemDTO struct {
	ID            uuid.UUID        `json:"id"`
	VariantID     *uuid.UUID       `json:"variant_id,omitempty"`
	ProductName   string           `json:"product_name"`
	VariantName   string           `json:"variant_name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Quantity      int              `json:"quantity"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
}

// PaymentTransactionDTO is the API view of a gateway transaction.
type PaymentTransactionDTO struct {
	TransactionID     string              `json:"transaction_id"`
	PaymentType       string              `json:"payment_type"`
	Amount            decimal.Decimal     `json:"amount"`
	Status            enums.PaymentStatus `json:"status"`
	TransactionStatus *string             `json:"transaction_status,omitempty"`
	FraudStatus       *string             `json:"fraud_status,omitempty"`
	RedirectURL       *string             `json:"redirect_url,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID             uuid.UUID               `json:"id"`
	UserID         uuid.UUID               `json:"user_id"`
	Status         enums.OrderStatus       `json:"status"`
	TotalPrice     decimal.Decimal         `json:"total_price"`
	ShippingCost   decimal.Decimal         `json:"shipping_cost"`
	Discount       decimal.Decimal         `json:"discount"`
	FinalPrice     decimal.Decimal         `json:"final_price"`
	Shipping       types.ShippingAddress   `json:"shipping"`
	Courier        *string                 `json:"courier,omitempty"`
	TrackingNumber *string                 `json:"tracking_number,omitempty"`
	PaymentMethod  *string                 `json:"payment_method,omitempty"`
	PaidAt         *time.Time              `json:"paid_at,omitempty"`
	ShippedAt      *time.Time              `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time              `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time              `json:"cancelled_at,omitempty"`
	Items          []OrderItemDTO          `json:"items"`
	Transactions   []PaymentTransactionDTO `json:"transactions,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

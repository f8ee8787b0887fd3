package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
)

// OrderRef is the order snapshot shared by every order event.
type OrderRef struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	Status     enums.OrderStatus `json:"status"`
	FinalPrice decimal.Decimal   `json:"final_price"`
}

// OrderCreatedEvent is emitted once the order and its reservations commit.
type OrderCreatedEvent struct {
	OrderRef
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderCancelledEvent is emitted after stock for the order is released.
type OrderCancelledEvent struct {
	OrderRef
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	CancelledAt    time.Time         `json:"cancelled_at"`
	Reason         string            `json:"reason,omitempty"`
}

// OrderStatusChangedEvent covers fulfilment moves made by staff.
type OrderStatusChangedEvent struct {
	OrderRef
	From           enums.OrderStatus `json:"from"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// OrderShippingUpdatedEvent is emitted when shipping cost is set on a pending order.
type OrderShippingUpdatedEvent struct {
	OrderRef
	Courier      string          `json:"courier"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

// OrderPaidEvent is emitted when a gateway notification settles the order.
type OrderPaidEvent struct {
	OrderRef
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
}

// OrderRefundedEvent is emitted when a cancelled order is refunded by the gateway.
type OrderRefundedEvent struct {
	OrderRef
	TransactionID string    `json:"transaction_id"`
	RefundedAt    time.Time `json:"refunded_at"`
}

// PaymentInitiatedEvent records a new gateway checkout session.
type PaymentInitiatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	RedirectURL   string          `json:"redirect_url"`
}

// PaymentUpdatedEvent records every applied gateway notification.
type PaymentUpdatedEvent struct {
	OrderID           uuid.UUID           `json:"order_id"`
	TransactionID     string              `json:"transaction_id"`
	TransactionStatus string              `json:"transaction_status"`
	FraudStatus       *string             `json:"fraud_status,omitempty"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
}

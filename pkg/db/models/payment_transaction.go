package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
)

// PaymentTransaction records one gateway checkout attempt for an order.
type PaymentTransaction struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	TransactionID     string              `gorm:"column:transaction_id;not null;uniqueIndex"`
	PaymentType       string              `gorm:"column:payment_type;not null"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransactionStatus *string             `gorm:"column:transaction_status"`
	FraudStatus       *string             `gorm:"column:fraud_status"`
	TransactionTime   *time.Time          `gorm:"column:transaction_time"`
	RawResponse       json.RawMessage     `gorm:"column:raw_response;type:jsonb"`
	RedirectToken     *string             `gorm:"column:redirect_token"`
	RedirectURL       *string             `gorm:"column:redirect_url"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

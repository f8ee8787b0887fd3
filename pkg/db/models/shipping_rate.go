package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingRate caches a carrier quote for a route and parcel weight.
type ShippingRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Origin      string          `gorm:"column:origin;not null"`
	Destination string          `gorm:"column:destination;not null"`
	Courier     string          `gorm:"column:courier;not null"`
	Service     string          `gorm:"column:service;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Cost        decimal.Decimal `gorm:"column:cost;type:numeric(12,2);not null"`
	ETD         string          `gorm:"column:etd;not null;default:''"`
	WeightGrams int             `gorm:"column:weight_grams;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

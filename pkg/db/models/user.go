package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity table maintained by the auth service.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	FullName  string    `gorm:"column:full_name;not null"`
	IsStaff   bool      `gorm:"column:is_staff;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

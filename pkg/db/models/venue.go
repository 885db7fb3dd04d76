package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a physical location events are hosted at. Capacity is an upper
// bound on any event's total tickets there.
type Venue struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Address   string    `gorm:"column:address;type:text;not null"`
	City      string    `gorm:"column:city;type:text;not null"`
	Country   string    `gorm:"column:country;type:text;not null"`
	Capacity  int       `gorm:"column:capacity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

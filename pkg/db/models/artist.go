package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is a performer that events are billed under.
type Artist struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	Genre     string    `gorm:"column:genre;type:text;not null"`
	Bio       *string   `gorm:"column:bio"`
	Website   *string   `gorm:"column:website"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

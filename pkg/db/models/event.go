package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmarchetti/stagepass-backend/pkg/enums"
)

// Event is the unit of inventory. TotalTickets is fixed at creation;
// AvailableTickets is only ever moved by the inventory ledger's conditional
// updates, never by application-level read-modify-write.
type Event struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID      uuid.UUID         `gorm:"column:organizer_id;type:uuid;not null;index"`
	ArtistID         uuid.UUID         `gorm:"column:artist_id;type:uuid;not null;index"`
	VenueID          uuid.UUID         `gorm:"column:venue_id;type:uuid;not null;index"`
	Title            string            `gorm:"column:title;type:text;not null"`
	Description      *string           `gorm:"column:description"`
	StartsAt         time.Time         `gorm:"column:starts_at;not null"`
	DurationMinutes  int               `gorm:"column:duration_minutes;not null"`
	Status           enums.EventStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	TotalTickets     int               `gorm:"column:total_tickets;not null"`
	AvailableTickets int               `gorm:"column:available_tickets;not null"`
	TicketPrice      decimal.Decimal   `gorm:"column:ticket_price;type:numeric(10,2);not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

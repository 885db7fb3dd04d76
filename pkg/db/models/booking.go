package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmarchetti/stagepass-backend/pkg/enums"
)

// Booking records a confirmed ticket hold. UnitPrice is a snapshot of the
// event's ticket price at booking time; TotalAmount = UnitPrice * Tickets and
// is never recomputed from the live event.
type Booking struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	EventID       uuid.UUID           `gorm:"column:event_id;type:uuid;not null;index"`
	Tickets       int                 `gorm:"column:tickets;not null"`
	UnitPrice     decimal.Decimal     `gorm:"column:unit_price;type:numeric(10,2);not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status        enums.BookingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TransactionID *string             `gorm:"column:transaction_id"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
)

// BookRequest is the payload accepted by the booking endpoint.
type BookRequest struct {
	EventID       uuid.UUID           `json:"event_id" validate:"required"`
	Tickets       int                 `json:"tickets" validate:"required,gt=0"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
}

// BookingDTO is the transport shape of a booking.
type BookingDTO struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	EventID       uuid.UUID           `json:"event_id"`
	Tickets       int                 `json:"tickets"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        enums.BookingStatus `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// EventSummary carries the event fields a receipt needs.
type EventSummary struct {
	ID       uuid.UUID         `json:"id"`
	Title    string            `json:"title"`
	StartsAt time.Time         `json:"starts_at"`
	Status   enums.EventStatus `json:"status"`
}

// Receipt pairs a booking with its event snapshot.
type Receipt struct {
	Booking *BookingDTO   `json:"booking"`
	Event   *EventSummary `json:"event"`
}

// ListPage is one page of bookings plus the cursor for the next page.
type ListPage struct {
	Bookings   []BookingDTO `json:"bookings"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(b *models.Booking) *BookingDTO {
	if b == nil {
		return nil
	}
	return &BookingDTO{
		ID:            b.ID,
		UserID:        b.UserID,
		EventID:       b.EventID,
		Tickets:       b.Tickets,
		UnitPrice:     b.UnitPrice,
		TotalAmount:   b.TotalAmount,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		TransactionID: b.TransactionID,
		CancelledAt:   b.CancelledAt,
		CreatedAt:     b.CreatedAt,
	}
}

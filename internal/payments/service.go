package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
	"github.com/lmarchetti/stagepass-backend/pkg/outbox"
)

// Service ingests payment status updates from the external payment provider.
// The provider owns the payment lifecycle; this service only records what it
// reports and never touches ticket inventory.
type Service interface {
	HandleUpdate(ctx context.Context, input UpdateInput) error
}

// UpdateInput is the normalized payload extracted from a provider webhook.
type UpdateInput struct {
	BookingID     uuid.UUID           `json:"booking_id" validate:"required"`
	Status        enums.PaymentStatus `json:"status" validate:"required"`
	TransactionID *string             `json:"transaction_id,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the webhook service dependencies.
type ServiceParams struct {
	DB     txRunner
	Repo   bookings.Repository
	Outbox outboxEmitter
	Logger *logger.Logger
}

type service struct {
	db     txRunner
	repo   bookings.Repository
	outbox outboxEmitter
	logg   *logger.Logger
}

// NewService wires the payment webhook service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

type paymentUpdatedPayload struct {
	BookingID     uuid.UUID           `json:"bookingId"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transactionId,omitempty"`
	ReportedAt    time.Time           `json:"reportedAt"`
}

func (s *service) HandleUpdate(ctx context.Context, input UpdateInput) error {
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	booking, err := s.repo.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}

	if booking.PaymentStatus == input.Status {
		// Providers redeliver webhooks; the same status twice is fine.
		return nil
	}
	if !validPaymentTransition(booking.PaymentStatus, input.Status) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move payment from %s to %s", booking.PaymentStatus, input.Status))
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdatePayment(ctx, input.BookingID, booking.PaymentStatus, input.Status, input.TransactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
		}
		if rows == 0 {
			// A concurrent delivery moved the status after we read it. The
			// guard keeps the loser from overwriting a terminal state; the
			// provider will retry and the redelivery check settles it.
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment status changed concurrently, no longer %s", booking.PaymentStatus))
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingPaymentUpdated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   input.BookingID,
			Version:       1,
			Data: paymentUpdatedPayload{
				BookingID:     input.BookingID,
				Status:        input.Status,
				TransactionID: input.TransactionID,
				ReportedAt:    time.Now(),
			},
		})
	})
}

// validPaymentTransition encodes the provider's lifecycle: pending moves to
// completed or failed, completed can be refunded, failed and refunded are
// terminal.
func validPaymentTransition(from, to enums.PaymentStatus) bool {
	switch from {
	case enums.PaymentStatusPending:
		return to == enums.PaymentStatusCompleted || to == enums.PaymentStatusFailed
	case enums.PaymentStatusCompleted:
		return to == enums.PaymentStatusRefunded
	default:
		return false
	}
}

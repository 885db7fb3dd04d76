package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/pkg/config"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
	"github.com/lmarchetti/stagepass-backend/pkg/metrics"
	"github.com/lmarchetti/stagepass-backend/pkg/outbox"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Service coordinates the booking workflow: reserve inventory first, persist
// the booking second, and compensate the reservation if persistence fails.
// The two steps run in separate transactions on purpose; the ledger hold is
// the source of truth and a failed persist is undone by an explicit release.
type Service interface {
	Book(ctx context.Context, userID uuid.UUID, req BookRequest) (*BookingDTO, error)
	Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	Get(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error)
	GetReceipt(ctx context.Context, userID, bookingID uuid.UUID) (*Receipt, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListPage, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTxRetry(ctx context.Context, maxAttempts int, backoff time.Duration, fn func(tx *gorm.DB) error) error
}

type eventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the dependencies required to build the coordinator.
type ServiceParams struct {
	DB        txRunner
	Repo      Repository
	Inventory inventory.Service
	Events    eventGetter
	Outbox    outboxEmitter
	Config    config.BookingConfig
	Metrics   *metrics.ReservationMetrics
	Logger    *logger.Logger
}

type service struct {
	db        txRunner
	repo      Repository
	inventory inventory.Service
	events    eventGetter
	outbox    outboxEmitter
	cfg       config.BookingConfig
	mtx       *metrics.ReservationMetrics
	logg      *logger.Logger
}

// NewService validates and wires the booking coordinator.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Config.ReserveMaxAttempts <= 0 {
		params.Config.ReserveMaxAttempts = 1
	}
	return &service{
		db:        params.DB,
		repo:      params.Repo,
		inventory: params.Inventory,
		events:    params.Events,
		outbox:    params.Outbox,
		cfg:       params.Config,
		mtx:       params.Metrics,
		logg:      params.Logger,
	}, nil
}

type bookingCreatedPayload struct {
	BookingID   uuid.UUID       `json:"bookingId"`
	EventID     uuid.UUID       `json:"eventId"`
	UserID      uuid.UUID       `json:"userId"`
	Tickets     int             `json:"tickets"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type bookingCancelledPayload struct {
	BookingID uuid.UUID `json:"bookingId"`
	EventID   uuid.UUID `json:"eventId"`
	UserID    uuid.UUID `json:"userId"`
	Tickets   int       `json:"tickets"`
}

func (s *service) Book(ctx context.Context, userID uuid.UUID, req BookRequest) (*BookingDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if req.Tickets <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tickets must be positive")
	}
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if event.Status != enums.EventStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event is not open for booking")
	}
	if event.StartsAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event has already started")
	}

	// Step one: take the hold. Its own short transaction with a bounded
	// retry budget so lock contention never reaches the caller.
	reserveErr := s.db.WithTxRetry(ctx, s.cfg.ReserveMaxAttempts, s.cfg.ReserveRetryBackoff, func(tx *gorm.DB) error {
		return s.inventory.WithTx(tx).Reserve(ctx, req.EventID, req.Tickets)
	})
	if reserveErr != nil {
		return nil, reserveErr
	}

	// Price snapshot: bookings keep the price in force when they were made.
	unitPrice := event.TicketPrice
	totalAmount := unitPrice.Mul(decimal.NewFromInt(int64(req.Tickets)))

	booking := &models.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		EventID:       req.EventID,
		Tickets:       req.Tickets,
		UnitPrice:     unitPrice,
		TotalAmount:   totalAmount,
		Status:        enums.BookingStatusActive,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
	}

	// Step two: persist the booking and queue its event together.
	persistErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist booking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Version:       1,
			Data: bookingCreatedPayload{
				BookingID:   booking.ID,
				EventID:     booking.EventID,
				UserID:      booking.UserID,
				Tickets:     booking.Tickets,
				TotalAmount: booking.TotalAmount,
			},
		})
	})
	if persistErr != nil {
		return nil, s.compensate(ctx, req.EventID, req.Tickets, persistErr)
	}

	return FromModel(booking), nil
}

// compensate returns the held tickets after a failed persist. If the release
// itself fails the two errors are reported together; at that point the count
// needs operator attention.
func (s *service) compensate(ctx context.Context, eventID uuid.UUID, qty int, persistErr error) error {
	s.mtx.IncCompensation()

	// The persist failure may BE the caller's timeout or disconnect. The
	// hold is already committed, so the release must outlive the request;
	// run it on a context detached from the caller's cancellation.
	releaseCtx := context.WithoutCancel(ctx)
	releaseErr := s.db.WithTxRetry(releaseCtx, s.cfg.ReserveMaxAttempts, s.cfg.ReserveRetryBackoff, func(tx *gorm.DB) error {
		return s.inventory.WithTx(tx).Release(releaseCtx, eventID, qty)
	})
	if releaseErr == nil {
		if s.logg != nil {
			s.logg.Warn(releaseCtx, "booking persist failed, reservation released")
		}
		return persistErr
	}

	combined := multierr.Append(persistErr, releaseErr)
	if s.logg != nil {
		s.logg.Error(releaseCtx, "booking persist and compensating release both failed", combined)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, combined, "booking failed and tickets were not released")
}

func (s *service) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == enums.BookingStatusCancelled {
		// Cancelling twice is a no-op, not an error.
		return FromModel(booking), nil
	}

	now := time.Now()
	txErr := s.db.WithTxRetry(ctx, s.cfg.ReserveMaxAttempts, s.cfg.ReserveRetryBackoff, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.MarkCancelled(ctx, bookingID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel booking")
		}
		if rows == 0 {
			// Lost the race to another cancel; nothing left to do.
			return nil
		}
		if err := s.inventory.WithTx(tx).Release(ctx, booking.EventID, booking.Tickets); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Version:       1,
			Data: bookingCancelledPayload{
				BookingID: booking.ID,
				EventID:   booking.EventID,
				UserID:    booking.UserID,
				Tickets:   booking.Tickets,
			},
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	refreshed, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload booking")
	}
	return FromModel(refreshed), nil
}

func (s *service) Get(ctx context.Context, userID, bookingID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return FromModel(booking), nil
}

func (s *service) GetReceipt(ctx context.Context, userID, bookingID uuid.UUID) (*Receipt, error) {
	booking, err := s.ownedBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, booking.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event for receipt")
	}
	return &Receipt{
		Booking: FromModel(booking),
		Event: &EventSummary{
			ID:       event.ID,
			Title:    event.Title,
			StartsAt: event.StartsAt,
			Status:   event.Status,
		},
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookings")
	}

	page := &ListPage{Bookings: make([]BookingDTO, 0, len(rows))}
	trimmed := rows
	if len(rows) > limit {
		trimmed = rows[:limit]
		last := trimmed[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range trimmed {
		page.Bookings = append(page.Bookings, *FromModel(&trimmed[i]))
	}
	return page, nil
}

func (s *service) ownedBooking(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	if userID != uuid.Nil && booking.UserID != userID {
		// Hide other users' bookings entirely.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

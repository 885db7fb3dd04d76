package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/metrics"
)

// Service is the inventory ledger: the single authority over
// available_tickets. Reserve and Release are atomic test-and-set operations;
// a failed Reserve leaves the count untouched.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Reserve(ctx context.Context, eventID uuid.UUID, qty int) error
	Release(ctx context.Context, eventID uuid.UUID, qty int) error
	Available(ctx context.Context, eventID uuid.UUID) (int, error)
}

// ShortfallDetails is attached to insufficient-inventory errors so callers
// can report how many tickets were actually left.
type ShortfallDetails struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

type service struct {
	repo Repository
	mtx  *metrics.ReservationMetrics
}

// NewService wires the inventory ledger with the provided repository.
// Metrics may be nil.
func NewService(repo Repository, mtx *metrics.ReservationMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, mtx: mtx}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), mtx: s.mtx}
}

func (s *service) Reserve(ctx context.Context, eventID uuid.UUID, qty int) error {
	start := time.Now()
	err := s.reserve(ctx, eventID, qty)
	s.mtx.ObserveReserve(reserveOutcome(err), time.Since(start))
	return err
}

func (s *service) reserve(ctx context.Context, eventID uuid.UUID, qty int) error {
	if eventID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "event id is required")
	}
	if qty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.DecrementAvailable(ctx, eventID, qty)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "reserving tickets")
	}
	if rows > 0 {
		return nil
	}

	// The guarded update matched nothing: either the event is gone or the
	// remaining count is short. Load it to tell the two apart.
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if errIsNotFound(err) {
			return apperrors.New(apperrors.CodeNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading event after failed reserve")
	}
	return apperrors.New(apperrors.CodeInsufficientInventory, "not enough tickets available").
		WithDetails(ShortfallDetails{Requested: qty, Available: event.AvailableTickets})
}

func (s *service) Release(ctx context.Context, eventID uuid.UUID, qty int) error {
	start := time.Now()
	err := s.release(ctx, eventID, qty)
	s.mtx.ObserveRelease(releaseOutcome(err), time.Since(start))
	return err
}

func (s *service) release(ctx context.Context, eventID uuid.UUID, qty int) error {
	if eventID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "event id is required")
	}
	if qty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	rows, err := s.repo.IncrementAvailable(ctx, eventID, qty)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "releasing tickets")
	}
	if rows > 0 {
		return nil
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if errIsNotFound(err) {
			return apperrors.New(apperrors.CodeNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading event after failed release")
	}
	// Releasing past total_tickets means the books are wrong somewhere.
	return apperrors.New(apperrors.CodeInternal,
		fmt.Sprintf("release of %d would exceed total tickets (available %d of %d)",
			qty, event.AvailableTickets, event.TotalTickets))
}

func (s *service) Available(ctx context.Context, eventID uuid.UUID) (int, error) {
	if eventID == uuid.Nil {
		return 0, apperrors.New(apperrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if errIsNotFound(err) {
			return 0, apperrors.New(apperrors.CodeNotFound, "event not found")
		}
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "loading event")
	}
	return event.AvailableTickets, nil
}

func reserveOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperrors.As(err) != nil && apperrors.As(err).Code() == apperrors.CodeInsufficientInventory:
		return metrics.OutcomeInsufficient
	case apperrors.As(err) != nil && apperrors.As(err).Code() == apperrors.CodeNotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func releaseOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperrors.As(err) != nil && apperrors.As(err).Code() == apperrors.CodeNotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func errIsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

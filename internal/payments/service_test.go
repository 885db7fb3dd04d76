package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/outbox"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	booking *models.Booking
	updated *enums.PaymentStatus
	txnID   *string
	// staleRead, when set, is returned as the booking's payment status on
	// reads while writes are still checked against the stored value. It
	// simulates a concurrent delivery winning between read and write.
	staleRead *enums.PaymentStatus
}

func (f *fakeRepo) WithTx(tx *gorm.DB) bookings.Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, booking *models.Booking) error { return nil }

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.booking
	if f.staleRead != nil {
		copied.PaymentStatus = *f.staleRead
	}
	return &copied, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeRepo) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) UpdatePayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, transactionID *string) (int64, error) {
	if f.booking == nil || f.booking.ID != id || f.booking.PaymentStatus != from {
		return 0, nil
	}
	f.booking.PaymentStatus = to
	f.updated = &to
	f.txnID = transactionID
	return 1, nil
}

type fakeEmitter struct {
	emitted []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.emitted = append(f.emitted, event)
	return nil
}

func newTestService(t *testing.T, booking *models.Booking) (*fakeRepo, *fakeEmitter, Service) {
	t.Helper()
	repo := &fakeRepo{booking: booking}
	emitter := &fakeEmitter{}
	svc, err := NewService(ServiceParams{DB: fakeTx{}, Repo: repo, Outbox: emitter})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return repo, emitter, svc
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		EventID:       uuid.New(),
		Tickets:       2,
		Status:        enums.BookingStatusActive,
		PaymentStatus: enums.PaymentStatusPending,
	}
}

func TestHandleUpdateCompletesPayment(t *testing.T) {
	t.Parallel()

	booking := pendingBooking()
	repo, emitter, svc := newTestService(t, booking)

	txn := "txn_12345"
	err := svc.HandleUpdate(context.Background(), UpdateInput{
		BookingID:     booking.ID,
		Status:        enums.PaymentStatusCompleted,
		TransactionID: &txn,
	})
	if err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if repo.updated == nil || *repo.updated != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed status, got %v", repo.updated)
	}
	if repo.txnID == nil || *repo.txnID != txn {
		t.Fatalf("expected transaction id to be stored, got %v", repo.txnID)
	}
	if len(emitter.emitted) != 1 || emitter.emitted[0].EventType != enums.EventBookingPaymentUpdated {
		t.Fatalf("expected payment_updated event, got %+v", emitter.emitted)
	}
}

func TestHandleUpdateRedeliveryIsNoop(t *testing.T) {
	t.Parallel()

	booking := pendingBooking()
	booking.PaymentStatus = enums.PaymentStatusCompleted
	repo, emitter, svc := newTestService(t, booking)

	err := svc.HandleUpdate(context.Background(), UpdateInput{
		BookingID: booking.ID,
		Status:    enums.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("handle update: %v", err)
	}
	if repo.updated != nil {
		t.Fatal("redelivery must not rewrite the status")
	}
	if len(emitter.emitted) != 0 {
		t.Fatal("redelivery must not emit an event")
	}
}

func TestHandleUpdateRejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	booking := pendingBooking()
	booking.PaymentStatus = enums.PaymentStatusFailed
	_, _, svc := newTestService(t, booking)

	err := svc.HandleUpdate(context.Background(), UpdateInput{
		BookingID: booking.ID,
		Status:    enums.PaymentStatusCompleted,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestHandleUpdateConcurrentDeliveryCannotOverwrite(t *testing.T) {
	t.Parallel()

	// The stored booking is already completed, but this delivery read it
	// while it was still pending. The guarded write must catch the stale
	// read instead of clobbering the terminal state with failed.
	booking := pendingBooking()
	booking.PaymentStatus = enums.PaymentStatusCompleted
	repo, emitter, svc := newTestService(t, booking)
	stale := enums.PaymentStatusPending
	repo.staleRead = &stale

	err := svc.HandleUpdate(context.Background(), UpdateInput{
		BookingID: booking.ID,
		Status:    enums.PaymentStatusFailed,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if repo.booking.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("completed payment was overwritten to %s", repo.booking.PaymentStatus)
	}
	if len(emitter.emitted) != 0 {
		t.Fatal("losing delivery must not emit an event")
	}
}

func TestHandleUpdateUnknownBooking(t *testing.T) {
	t.Parallel()

	_, _, svc := newTestService(t, nil)

	err := svc.HandleUpdate(context.Background(), UpdateInput{
		BookingID: uuid.New(),
		Status:    enums.PaymentStatusCompleted,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

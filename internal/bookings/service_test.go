package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/pkg/config"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/outbox"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (fakeTxRunner) WithTxRetry(ctx context.Context, maxAttempts int, backoff time.Duration, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// ctxBoundTxRunner refuses to start work on a dead context, mirroring the
// real client where Begin fails once the caller's context is cancelled.
type ctxBoundTxRunner struct{}

func (ctxBoundTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

func (ctxBoundTxRunner) WithTxRetry(ctx context.Context, maxAttempts int, backoff time.Duration, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

type fakeBookingRepo struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*models.Booking
	createErr error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[uuid.UUID]*models.Booking{}}
}

func (f *fakeBookingRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *booking
	return &copied, nil
}

func (f *fakeBookingRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			rows = append(rows, *b)
		}
	}
	return rows, nil
}

func (f *fakeBookingRepo) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok || booking.Status != enums.BookingStatusActive {
		return 0, nil
	}
	booking.Status = enums.BookingStatusCancelled
	booking.CancelledAt = &at
	return 1, nil
}

func (f *fakeBookingRepo) UpdatePayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, transactionID *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[id]
	if !ok || booking.PaymentStatus != from {
		return 0, nil
	}
	booking.PaymentStatus = to
	if transactionID != nil {
		booking.TransactionID = transactionID
	}
	return 1, nil
}

// abandoningRepo simulates a caller that gives up mid-persist: the request
// context dies and the insert fails with it.
type abandoningRepo struct {
	*fakeBookingRepo
	cancel context.CancelFunc
}

func (r *abandoningRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *abandoningRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.cancel()
	return context.Canceled
}

// memoryLedger applies ledger semantics to the fake event store so booking
// tests can observe inventory movement without a database.
type memoryLedger struct {
	mu         sync.Mutex
	store      *fakeEvents
	releases   map[uuid.UUID]int
	releaseErr error
}

func newMemoryLedger(store *fakeEvents) *memoryLedger {
	return &memoryLedger{store: store, releases: map[uuid.UUID]int{}}
}

func (m *memoryLedger) WithTx(tx *gorm.DB) inventory.Service { return m }

func (m *memoryLedger) Reserve(ctx context.Context, eventID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.store.events[eventID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	if event.AvailableTickets < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "not enough tickets available").
			WithDetails(inventory.ShortfallDetails{Requested: qty, Available: event.AvailableTickets})
	}
	event.AvailableTickets -= qty
	return nil
}

func (m *memoryLedger) Release(ctx context.Context, eventID uuid.UUID, qty int) error {
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.store.events[eventID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	if event.AvailableTickets+qty > event.TotalTickets {
		return pkgerrors.New(pkgerrors.CodeInternal, "release exceeds total tickets")
	}
	event.AvailableTickets += qty
	m.releases[eventID]++
	return nil
}

func (m *memoryLedger) Available(ctx context.Context, eventID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.store.events[eventID]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return event.AvailableTickets, nil
}

func (m *memoryLedger) available(eventID uuid.UUID) int {
	count, _ := m.Available(context.Background(), eventID)
	return count
}

func (m *memoryLedger) releaseCount(eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases[eventID]
}

func (m *memoryLedger) failReleases(err error) {
	m.releaseErr = err
}

type fakeOutbox struct {
	mu      sync.Mutex
	emitted []outbox.DomainEvent
	err     error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newFakeEvents(events ...*models.Event) *fakeEvents {
	f := &fakeEvents{events: map[uuid.UUID]*models.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *event
	return &copied, nil
}

func publishedEvent(total int, price float64) *models.Event {
	return &models.Event{
		ID:               uuid.New(),
		OrganizerID:      uuid.New(),
		Title:            "Arena Night",
		StartsAt:         time.Now().Add(24 * time.Hour),
		Status:           enums.EventStatusPublished,
		TotalTickets:     total,
		AvailableTickets: total,
		TicketPrice:      decimal.NewFromFloat(price),
	}
}

type testHarness struct {
	svc    Service
	repo   *fakeBookingRepo
	events *fakeEvents
	ledger *memoryLedger
	outbox *fakeOutbox
}

func newHarness(t *testing.T, event *models.Event) *testHarness {
	t.Helper()
	repo := newFakeBookingRepo()
	eventStore := newFakeEvents(event)
	ledger := newMemoryLedger(eventStore)
	ob := &fakeOutbox{}
	svc, err := NewService(ServiceParams{
		DB:        fakeTxRunner{},
		Repo:      repo,
		Inventory: ledger,
		Events:    eventStore,
		Outbox:    ob,
		Config:    config.BookingConfig{ReserveMaxAttempts: 3, ReserveRetryBackoff: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testHarness{svc: svc, repo: repo, events: eventStore, ledger: ledger, outbox: ob}
}

func TestBookComputesTotalFromSnapshot(t *testing.T) {
	t.Parallel()

	event := publishedEvent(100, 19.99)
	h := newHarness(t, event)
	userID := uuid.New()

	booking, err := h.svc.Book(context.Background(), userID, BookRequest{
		EventID:       event.ID,
		Tickets:       3,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	want := decimal.NewFromFloat(59.97)
	if !booking.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, booking.TotalAmount)
	}
	if !booking.UnitPrice.Equal(decimal.NewFromFloat(19.99)) {
		t.Fatalf("unexpected unit price %s", booking.UnitPrice)
	}
	if booking.Status != enums.BookingStatusActive {
		t.Fatalf("expected active booking, got %s", booking.Status)
	}
	if booking.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", booking.PaymentStatus)
	}

	if got := h.ledger.available(event.ID); got != 97 {
		t.Fatalf("expected 97 tickets left, got %d", got)
	}
	if len(h.outbox.emitted) != 1 || h.outbox.emitted[0].EventType != enums.EventBookingCreated {
		t.Fatalf("expected one booking.created event, got %+v", h.outbox.emitted)
	}
}

func TestBookInsufficientLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	event := publishedEvent(2, 10.00)
	h := newHarness(t, event)

	_, err := h.svc.Book(context.Background(), uuid.New(), BookRequest{
		EventID:       event.ID,
		Tickets:       5,
		PaymentMethod: enums.PaymentMethodCard,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientInventory {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}

	if got := h.ledger.available(event.ID); got != 2 {
		t.Fatalf("failed booking must not move inventory, got %d", got)
	}
	if len(h.repo.bookings) != 0 {
		t.Fatal("no booking should be persisted")
	}
	if len(h.outbox.emitted) != 0 {
		t.Fatal("no outbox event should be queued")
	}
}

func TestBookUnpublishedEventRejected(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	event.Status = enums.EventStatusDraft
	h := newHarness(t, event)

	_, err := h.svc.Book(context.Background(), uuid.New(), BookRequest{
		EventID:       event.ID,
		Tickets:       1,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestBookPersistFailureCompensates(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	h := newHarness(t, event)
	h.repo.createErr = errors.New("disk full")

	_, err := h.svc.Book(context.Background(), uuid.New(), BookRequest{
		EventID:       event.ID,
		Tickets:       4,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err == nil {
		t.Fatal("expected persist failure to surface")
	}

	// The hold must have been handed back.
	if got := h.ledger.available(event.ID); got != 10 {
		t.Fatalf("expected compensating release, got %d available", got)
	}
	if h.ledger.releaseCount(event.ID) != 1 {
		t.Fatalf("expected exactly one release, got %d", h.ledger.releaseCount(event.ID))
	}
}

func TestBookPersistAndReleaseFailureReportsBoth(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	h := newHarness(t, event)
	h.repo.createErr = errors.New("disk full")
	h.ledger.failReleases(errors.New("ledger offline"))

	_, err := h.svc.Book(context.Background(), uuid.New(), BookRequest{
		EventID:       event.ID,
		Tickets:       4,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err == nil {
		t.Fatal("expected combined failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "tickets were not released") {
		t.Fatalf("expected release failure to be flagged, got %q", msg)
	}
}

func TestBookCallerTimeoutAfterReserveStillReleases(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	eventStore := newFakeEvents(event)
	ledger := newMemoryLedger(eventStore)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &abandoningRepo{fakeBookingRepo: newFakeBookingRepo(), cancel: cancel}

	svc, err := NewService(ServiceParams{
		DB:        ctxBoundTxRunner{},
		Repo:      repo,
		Inventory: ledger,
		Events:    eventStore,
		Outbox:    &fakeOutbox{},
		Config:    config.BookingConfig{ReserveMaxAttempts: 3, ReserveRetryBackoff: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Book(ctx, uuid.New(), BookRequest{
		EventID:       event.ID,
		Tickets:       4,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err == nil {
		t.Fatal("expected persist failure to surface")
	}
	if strings.Contains(err.Error(), "tickets were not released") {
		t.Fatalf("compensating release must survive the caller's cancellation, got %q", err)
	}

	// The reserved tickets must come back even though the request context
	// is already dead.
	if got := ledger.available(event.ID); got != 10 {
		t.Fatalf("expected all tickets back, got %d available", got)
	}
	if ledger.releaseCount(event.ID) != 1 {
		t.Fatalf("expected exactly one release, got %d", ledger.releaseCount(event.ID))
	}
}

func TestCancelReleasesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	h := newHarness(t, event)
	userID := uuid.New()

	booking, err := h.svc.Book(context.Background(), userID, BookRequest{
		EventID:       event.ID,
		Tickets:       4,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if got := h.ledger.available(event.ID); got != 6 {
		t.Fatalf("expected 6 available after booking, got %d", got)
	}

	cancelled, err := h.svc.Cancel(context.Background(), userID, booking.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be set")
	}
	if got := h.ledger.available(event.ID); got != 10 {
		t.Fatalf("expected tickets back after cancel, got %d", got)
	}

	// Second cancel: success, but the ledger must not move again.
	again, err := h.svc.Cancel(context.Background(), userID, booking.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != enums.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", again.Status)
	}
	if got := h.ledger.available(event.ID); got != 10 {
		t.Fatalf("double cancel must not over-release, got %d", got)
	}
	if h.ledger.releaseCount(event.ID) != 1 {
		t.Fatalf("expected a single release, got %d", h.ledger.releaseCount(event.ID))
	}
}

func TestCancelForeignBookingHidden(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 10.00)
	h := newHarness(t, event)
	owner := uuid.New()

	booking, err := h.svc.Book(context.Background(), owner, BookRequest{
		EventID:       event.ID,
		Tickets:       1,
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = h.svc.Cancel(context.Background(), uuid.New(), booking.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign booking, got %v", err)
	}
}

func TestBookAndCancelSequenceBalances(t *testing.T) {
	t.Parallel()

	event := publishedEvent(10, 5.00)
	h := newHarness(t, event)
	userID := uuid.New()
	ctx := context.Background()

	book := func(qty int) (*BookingDTO, error) {
		return h.svc.Book(ctx, userID, BookRequest{
			EventID:       event.ID,
			Tickets:       qty,
			PaymentMethod: enums.PaymentMethodCard,
		})
	}

	if _, err := book(6); err != nil {
		t.Fatalf("book 6: %v", err)
	}
	three, err := book(3)
	if err != nil {
		t.Fatalf("book 3: %v", err)
	}
	if _, err := h.svc.Cancel(ctx, userID, three.ID); err != nil {
		t.Fatalf("cancel 3: %v", err)
	}
	if _, err := book(4); err != nil {
		t.Fatalf("book 4: %v", err)
	}

	// 10 - 6 - 3 + 3 - 4 = 0: the event is sold out.
	if got := h.ledger.available(event.ID); got != 0 {
		t.Fatalf("expected 0 available, got %d", got)
	}
	if _, err := book(1); err == nil {
		t.Fatal("expected sold-out booking to fail")
	}

	// Active bookings must account for every sold ticket.
	var activeTickets int
	for _, b := range h.repo.bookings {
		if b.Status == enums.BookingStatusActive {
			activeTickets += b.Tickets
		}
	}
	if activeTickets != event.TotalTickets {
		t.Fatalf("active tickets %d should equal total %d", activeTickets, event.TotalTickets)
	}
}

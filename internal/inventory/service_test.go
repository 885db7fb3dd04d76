package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	apperrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
)

// fakeRepository keeps counts in memory behind a mutex so concurrency tests
// exercise the service's semantics without sqlite lock flakiness.
type fakeRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newFakeRepository(events ...*models.Event) *fakeRepository {
	f := &fakeRepository{events: map[uuid.UUID]*models.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) GetByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *event
	return &copied, nil
}

func (f *fakeRepository) DecrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok || event.AvailableTickets < qty {
		return 0, nil
	}
	event.AvailableTickets -= qty
	return 1, nil
}

func (f *fakeRepository) IncrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok || event.AvailableTickets+qty > event.TotalTickets {
		return 0, nil
	}
	event.AvailableTickets += qty
	return 1, nil
}

func TestServiceReserveValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newFakeRepository(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Reserve(context.Background(), uuid.New(), 0); err == nil {
		t.Fatal("expected validation error for zero quantity")
	} else if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Reserve(context.Background(), uuid.Nil, 2); err == nil {
		t.Fatal("expected validation error for nil event id")
	}
}

func TestServiceReserveNotFound(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newFakeRepository(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Reserve(context.Background(), uuid.New(), 1)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceReserveInsufficientReportsShortfall(t *testing.T) {
	t.Parallel()

	event := &models.Event{ID: uuid.New(), TotalTickets: 10, AvailableTickets: 2}
	svc, err := NewService(newFakeRepository(event), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Reserve(context.Background(), event.ID, 5)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeInsufficientInventory {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	details, ok := typed.Details().(ShortfallDetails)
	if !ok {
		t.Fatalf("expected shortfall details, got %T", typed.Details())
	}
	if details.Requested != 5 || details.Available != 2 {
		t.Fatalf("unexpected shortfall: %+v", details)
	}

	// The failed attempt must not have moved the count.
	left, err := svc.Available(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 available, got %d", left)
	}
}

func TestServiceReleaseCapBreach(t *testing.T) {
	t.Parallel()

	event := &models.Event{ID: uuid.New(), TotalTickets: 10, AvailableTickets: 10}
	svc, err := NewService(newFakeRepository(event), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.Release(context.Background(), event.ID, 1)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeInternal {
		t.Fatalf("expected internal invariant error, got %v", err)
	}
}

func TestServiceConcurrentReserveNeverOversells(t *testing.T) {
	t.Parallel()

	const contenders = 50
	event := &models.Event{ID: uuid.New(), TotalTickets: contenders, AvailableTickets: contenders - 1}
	svc, err := NewService(newFakeRepository(event), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = svc.Reserve(context.Background(), event.ID, 1)
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, res := range results {
		switch {
		case res == nil:
			succeeded++
		case apperrors.As(res) != nil && apperrors.As(res).Code() == apperrors.CodeInsufficientInventory:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", res)
		}
	}

	if succeeded != contenders-1 {
		t.Fatalf("expected %d successful reserves, got %d", contenders-1, succeeded)
	}
	if insufficient != 1 {
		t.Fatalf("expected exactly 1 shortfall, got %d", insufficient)
	}

	left, err := svc.Available(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if left != 0 {
		t.Fatalf("expected 0 tickets left, got %d", left)
	}
}

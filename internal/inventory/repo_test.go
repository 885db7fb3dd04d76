package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/lmarchetti/stagepass-backend/pkg/db"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,
  organizer_id TEXT NOT NULL,
  artist_id TEXT NOT NULL,
  venue_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  starts_at DATETIME NOT NULL,
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  total_tickets INTEGER NOT NULL,
  available_tickets INTEGER NOT NULL,
  ticket_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create events table: %v", err)
	}
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, total, available int) models.Event {
	t.Helper()
	event := models.Event{
		ID:               uuid.New(),
		OrganizerID:      uuid.New(),
		ArtistID:         uuid.New(),
		VenueID:          uuid.New(),
		Title:            "Warehouse Night",
		StartsAt:         time.Now().Add(48 * time.Hour),
		Status:           enums.EventStatusPublished,
		TotalTickets:     total,
		AvailableTickets: available,
		TicketPrice:      decimal.NewFromFloat(19.99),
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func TestRepositoryDecrementAvailable(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	event := seedEvent(t, db, 10, 5)

	rows, err := repo.DecrementAvailable(ctx, event.ID, 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}

	loaded, err := repo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("load event: %v", err)
	}
	if loaded.AvailableTickets != 2 {
		t.Fatalf("expected 2 available, got %d", loaded.AvailableTickets)
	}

	// Short by one: the guard must leave the row untouched.
	rows, err = repo.DecrementAvailable(ctx, event.ID, 3)
	if err != nil {
		t.Fatalf("decrement short: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected guard to reject, got %d rows", rows)
	}

	loaded, err = repo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if loaded.AvailableTickets != 2 {
		t.Fatalf("failed reserve must not move the count, got %d", loaded.AvailableTickets)
	}
}

func TestRepositoryIncrementAvailableCap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db)
	event := seedEvent(t, db, 10, 8)

	rows, err := repo.IncrementAvailable(ctx, event.ID, 2)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}

	// Already back at total; any further release breaches the cap.
	rows, err = repo.IncrementAvailable(ctx, event.ID, 1)
	if err != nil {
		t.Fatalf("increment over cap: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected cap guard to reject, got %d rows", rows)
	}

	loaded, err := repo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("load event: %v", err)
	}
	if loaded.AvailableTickets != 10 {
		t.Fatalf("expected 10 available, got %d", loaded.AvailableTickets)
	}
}

func TestRepositoryConcurrentDecrementNeverOversells(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	client := pkgdb.FromConn(db)
	repo := NewRepository(db)

	// One contender more than there are tickets, each in its own retried
	// transaction. sqlite serializes the writers with lock errors along the
	// way; the retry wrapper absorbs those, and the guarded update decides
	// who gets the last ticket.
	const contenders = 8
	event := seedEvent(t, db, contenders, contenders-1)

	var wg sync.WaitGroup
	var reserved, rejected int32
	failures := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var rows int64
			err := client.WithTxRetry(ctx, 10, 2*time.Millisecond, func(tx *gorm.DB) error {
				var txErr error
				rows, txErr = repo.WithTx(tx).DecrementAvailable(ctx, event.ID, 1)
				return txErr
			})
			if err != nil {
				failures <- err
				return
			}
			if rows == 1 {
				atomic.AddInt32(&reserved, 1)
			} else {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()
	close(failures)
	for err := range failures {
		t.Fatalf("concurrent decrement: %v", err)
	}

	if reserved != contenders-1 {
		t.Fatalf("expected %d reserves to land, got %d", contenders-1, reserved)
	}
	if rejected != 1 {
		t.Fatalf("expected exactly 1 rejection, got %d", rejected)
	}

	loaded, err := repo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("load event: %v", err)
	}
	if loaded.AvailableTickets != 0 {
		t.Fatalf("expected 0 tickets left, got %d", loaded.AvailableTickets)
	}
}

func TestRepositoryDecrementMissingEvent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.DecrementAvailable(context.Background(), uuid.New(), 1)
	if err != nil {
		t.Fatalf("decrement missing: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for missing event, got %d", rows)
	}
}

package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
)

// Repository performs the atomic inventory movements for events. All count
// changes go through conditional UPDATEs so concurrent bookings can never
// oversell; nothing here does read-modify-write on available_tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	// DecrementAvailable subtracts qty from available_tickets only when
	// enough remain. Returns the number of rows updated (0 or 1).
	DecrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error)
	// IncrementAvailable adds qty back, guarded so the count can never
	// exceed total_tickets. Returns the number of rows updated (0 or 1).
	IncrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", eventID).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) DecrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND available_tickets >= ?", eventID, qty).
		Update("available_tickets", gorm.Expr("available_tickets - ?", qty))
	return result.RowsAffected, result.Error
}

func (r *repository) IncrementAvailable(ctx context.Context, eventID uuid.UUID, qty int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND available_tickets + ? <= total_tickets", eventID, qty).
		Update("available_tickets", gorm.Expr("available_tickets + ?", qty))
	return result.RowsAffected, result.Error
}

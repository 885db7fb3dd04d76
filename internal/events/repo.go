package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// ListFilter narrows event listings.
type ListFilter struct {
	Status      *enums.EventStatus
	OrganizerID *uuid.UUID
}

// Repository manages persistence for events. Inventory movements are NOT done
// here; those belong to the inventory ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// UpdateFields applies the given column updates. available_tickets and
	// total_tickets are rejected so callers cannot bypass the ledger.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// TransitionStatus flips status from one value to another in a single
	// guarded update. Returns rows affected (0 when the event was not in
	// the expected state).
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (int64, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Event, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	delete(fields, "available_tickets")
	delete(fields, "total_tickets")
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrganizerID != nil {
		query = query.Where("organizer_id = ?", *filter.OrganizerID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Event
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

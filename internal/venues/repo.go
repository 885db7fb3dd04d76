package venues

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Repository manages persistence for venues.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, venue *models.Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	Update(ctx context.Context, venue *models.Venue) error
	// Delete removes a venue by id. Returns rows affected (0 when the venue
	// does not exist).
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, params pagination.Params) ([]models.Venue, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a venues repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, venue *models.Venue) error {
	return r.db.WithContext(ctx).Create(venue).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	var venue models.Venue
	if err := r.db.WithContext(ctx).First(&venue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *repository) Update(ctx context.Context, venue *models.Venue) error {
	return r.db.WithContext(ctx).Save(venue).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Venue{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Venue, error) {
	query := r.db.WithContext(ctx).Model(&models.Venue{})

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

	var rows []models.Venue
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

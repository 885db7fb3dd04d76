package artists

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Repository manages persistence for artists.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, artist *models.Artist) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	Update(ctx context.Context, artist *models.Artist) error
	List(ctx context.Context, params pagination.Params) ([]models.Artist, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an artists repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).Create(artist).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	var artist models.Artist
	if err := r.db.WithContext(ctx).First(&artist, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

func (r *repository) Update(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).Save(artist).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Artist, error) {
	query := r.db.WithContext(ctx).Model(&models.Artist{})

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

	var rows []models.Artist
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

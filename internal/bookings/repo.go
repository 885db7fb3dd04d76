package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Repository manages persistence for bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, error)
	// MarkCancelled flips an active booking to cancelled in one guarded
	// update. Returns rows affected (0 when the booking was not active).
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	// UpdatePayment moves payment_status from the expected current value to
	// the reported one in one guarded update. Returns rows affected (0 when
	// another writer changed the status since it was read).
	UpdatePayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, transactionID *string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bookings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Booking, error) {
	query := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("user_id = ?", userID)

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

	var rows []models.Booking
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, enums.BookingStatusActive).
		Updates(map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, transactionID *string) (int64, error) {
	fields := map[string]any{"payment_status": to}
	if transactionID != nil {
		fields["transaction_id"] = *transactionID
	}
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(fields)
	return result.RowsAffected, result.Error
}

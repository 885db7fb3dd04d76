package venues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Service exposes venue management operations.
type Service interface {
	Create(ctx context.Context, input CreateVenueInput) (*models.Venue, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateVenueInput) (*models.Venue, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params) (*ListPage, error)
}

// CreateVenueInput captures the fields required to register a venue.
type CreateVenueInput struct {
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address" validate:"required"`
	City     string `json:"city" validate:"required"`
	Country  string `json:"country" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

// UpdateVenueInput holds optional mutations; nil fields stay untouched.
type UpdateVenueInput struct {
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	City     *string `json:"city,omitempty"`
	Country  *string `json:"country,omitempty"`
	Capacity *int    `json:"capacity,omitempty" validate:"omitempty,gt=0"`
}

// ListPage is one page of venues plus the cursor for the next page.
type ListPage struct {
	Venues     []models.Venue `json:"venues"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a venues service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("venues repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateVenueInput) (*models.Venue, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "venue name is required")
	}
	if input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}

	venue := &models.Venue{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(input.Name),
		Address:  strings.TrimSpace(input.Address),
		City:     strings.TrimSpace(input.City),
		Country:  strings.TrimSpace(input.Country),
		Capacity: input.Capacity,
	}
	if err := s.repo.Create(ctx, venue); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create venue")
	}
	return venue, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "venue id is required")
	}
	venue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "venue not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load venue")
	}
	return venue, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateVenueInput) (*models.Venue, error) {
	venue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "venue name cannot be empty")
		}
		venue.Name = strings.TrimSpace(*input.Name)
	}
	if input.Address != nil {
		venue.Address = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		venue.City = strings.TrimSpace(*input.City)
	}
	if input.Country != nil {
		venue.Country = strings.TrimSpace(*input.Country)
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
		}
		venue.Capacity = *input.Capacity
	}

	if err := s.repo.Update(ctx, venue); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update venue")
	}
	return venue, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "venue id is required")
	}
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "venue has scheduled events")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete venue")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "venue not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list venues")
	}

	page := &ListPage{Venues: rows}
	if len(rows) > limit {
		page.Venues = rows[:limit]
		last := page.Venues[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

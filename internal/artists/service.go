package artists

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

// Service exposes artist management operations.
type Service interface {
	Create(ctx context.Context, input CreateArtistInput) (*models.Artist, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateArtistInput) (*models.Artist, error)
	List(ctx context.Context, params pagination.Params) (*ListPage, error)
}

// CreateArtistInput captures the fields required to register an artist.
type CreateArtistInput struct {
	Name    string  `json:"name" validate:"required"`
	Genre   string  `json:"genre" validate:"required"`
	Bio     *string `json:"bio,omitempty"`
	Website *string `json:"website,omitempty" validate:"omitempty,url"`
}

// UpdateArtistInput holds optional mutations; nil fields stay untouched.
type UpdateArtistInput struct {
	Genre   *string `json:"genre,omitempty"`
	Bio     *string `json:"bio,omitempty"`
	Website *string `json:"website,omitempty" validate:"omitempty,url"`
}

// ListPage is one page of artists plus the cursor for the next page.
type ListPage struct {
	Artists    []models.Artist `json:"artists"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires an artists service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("artists repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateArtistInput) (*models.Artist, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist name is required")
	}
	if strings.TrimSpace(input.Genre) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "genre is required")
	}

	artist := &models.Artist{
		ID:      uuid.New(),
		Name:    name,
		Genre:   strings.TrimSpace(input.Genre),
		Bio:     input.Bio,
		Website: input.Website,
	}
	if err := s.repo.Create(ctx, artist); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "artist name already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create artist")
	}
	return artist, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist id is required")
	}
	artist, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "artist not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load artist")
	}
	return artist, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateArtistInput) (*models.Artist, error) {
	artist, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Genre != nil {
		if strings.TrimSpace(*input.Genre) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "genre cannot be empty")
		}
		artist.Genre = strings.TrimSpace(*input.Genre)
	}
	if input.Bio != nil {
		artist.Bio = input.Bio
	}
	if input.Website != nil {
		artist.Website = input.Website
	}

	if err := s.repo.Update(ctx, artist); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update artist")
	}
	return artist, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list artists")
	}

	page := &ListPage{Artists: rows}
	if len(rows) > limit {
		page.Artists = rows[:limit]
		last := page.Artists[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

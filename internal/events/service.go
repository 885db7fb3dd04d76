package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

// Service exposes event lifecycle operations. Ticket counts are seeded here
// at creation and immutable afterwards; only the inventory ledger moves
// available_tickets.
type Service interface {
	Create(ctx context.Context, input CreateEventInput) (*models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateEventInput) (*models.Event, error)
	Publish(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error)
	Cancel(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error)
	Complete(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error)
	ListPublished(ctx context.Context, params pagination.Params) (*ListPage, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, params pagination.Params) (*ListPage, error)
}

type artistChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Artist, error)
}

type venueChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Venue, error)
}

// CreateEventInput captures the fields required to create a draft event.
type CreateEventInput struct {
	OrganizerID     uuid.UUID       `json:"-"`
	ArtistID        uuid.UUID       `json:"artist_id" validate:"required"`
	VenueID         uuid.UUID       `json:"venue_id" validate:"required"`
	Title           string          `json:"title" validate:"required"`
	Description     *string         `json:"description,omitempty"`
	StartsAt        time.Time       `json:"starts_at" validate:"required"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0"`
	TotalTickets    int             `json:"total_tickets" validate:"required,gt=0"`
	TicketPrice     decimal.Decimal `json:"ticket_price"`
}

// UpdateEventInput holds optional mutations; ticket counts are deliberately
// absent.
type UpdateEventInput struct {
	Title           *string          `json:"title,omitempty"`
	Description     *string          `json:"description,omitempty"`
	StartsAt        *time.Time       `json:"starts_at,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty" validate:"omitempty,gt=0"`
	TicketPrice     *decimal.Decimal `json:"ticket_price,omitempty"`
}

// ListPage is one page of events plus the cursor for the next page.
type ListPage struct {
	Events     []models.Event `json:"events"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type service struct {
	repo    Repository
	artists artistChecker
	venues  venueChecker
}

// NewService wires an events service with its collaborators.
func NewService(repo Repository, artists artistChecker, venueSvc venueChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if artists == nil {
		return nil, fmt.Errorf("artists service required")
	}
	if venueSvc == nil {
		return nil, fmt.Errorf("venues service required")
	}
	return &service{repo: repo, artists: artists, venues: venueSvc}, nil
}

func (s *service) Create(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	if input.OrganizerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organizer id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.TotalTickets <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total tickets must be positive")
	}
	if input.TicketPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket price cannot be negative")
	}
	if input.StartsAt.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event must start in the future")
	}
	if input.DurationMinutes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}

	if _, err := s.artists.Get(ctx, input.ArtistID); err != nil {
		return nil, err
	}
	venue, err := s.venues.Get(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}
	if input.TotalTickets > venue.Capacity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total tickets exceed venue capacity").
			WithDetails(map[string]int{"total_tickets": input.TotalTickets, "capacity": venue.Capacity})
	}

	event := &models.Event{
		ID:               uuid.New(),
		OrganizerID:      input.OrganizerID,
		ArtistID:         input.ArtistID,
		VenueID:          input.VenueID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		StartsAt:         input.StartsAt,
		DurationMinutes:  input.DurationMinutes,
		Status:           enums.EventStatusDraft,
		TotalTickets:     input.TotalTickets,
		AvailableTickets: input.TotalTickets,
		TicketPrice:      input.TicketPrice,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
	}
	return event, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return event, nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateEventInput) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if event.Status == enums.EventStatusCancelled || event.Status == enums.EventStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event can no longer be edited")
	}

	fields := map[string]any{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		fields["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.StartsAt != nil {
		if input.StartsAt.Before(time.Now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event must start in the future")
		}
		fields["starts_at"] = *input.StartsAt
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
		}
		fields["duration_minutes"] = *input.DurationMinutes
	}
	if input.TicketPrice != nil {
		if input.TicketPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket price cannot be negative")
		}
		// Existing bookings keep their snapshot price; only future
		// bookings see the new one.
		fields["ticket_price"] = *input.TicketPrice
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
	}
	return s.Get(ctx, id)
}

func (s *service) Publish(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, actorID, id, enums.EventStatusDraft, enums.EventStatusPublished)
}

func (s *service) Cancel(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	from := event.Status
	if from != enums.EventStatusDraft && from != enums.EventStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel a %s event", from))
	}
	return s.applyTransition(ctx, id, from, enums.EventStatusCancelled)
}

func (s *service) Complete(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	return s.transition(ctx, actorID, id, enums.EventStatusPublished, enums.EventStatusCompleted)
}

func (s *service) transition(ctx context.Context, actorID, id uuid.UUID, from, to enums.EventStatus) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if event.Status != from {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move a %s event to %s", event.Status, to))
	}
	return s.applyTransition(ctx, id, from, to)
}

func (s *service) applyTransition(ctx context.Context, id uuid.UUID, from, to enums.EventStatus) (*models.Event, error) {
	rows, err := s.repo.TransitionStatus(ctx, id, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition event status")
	}
	if rows == 0 {
		// Someone else moved it first.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "event status changed concurrently")
	}
	return s.Get(ctx, id)
}

func (s *service) ownedEvent(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID != uuid.Nil && event.OrganizerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event belongs to another organizer")
	}
	return event, nil
}

func (s *service) ListPublished(ctx context.Context, params pagination.Params) (*ListPage, error) {
	status := enums.EventStatusPublished
	return s.list(ctx, ListFilter{Status: &status}, params)
}

func (s *service) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, params pagination.Params) (*ListPage, error) {
	if organizerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organizer id is required")
	}
	return s.list(ctx, ListFilter{OrganizerID: &organizerID}, params)
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (*ListPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}

	page := &ListPage{Events: rows}
	if len(rows) > limit {
		page.Events = rows[:limit]
		last := page.Events[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

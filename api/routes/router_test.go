package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lmarchetti/stagepass-backend/internal/artists"
	"github.com/lmarchetti/stagepass-backend/internal/auth"
	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/internal/events"
	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/internal/venues"
	pkgAuth "github.com/lmarchetti/stagepass-backend/pkg/auth"
	"github.com/lmarchetti/stagepass-backend/pkg/config"
	"github.com/lmarchetti/stagepass-backend/pkg/db/models"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{AccessToken: "token"}, nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return &auth.AuthResponse{AccessToken: "token"}, nil
}

type stubArtistService struct{}

func (stubArtistService) Create(ctx context.Context, input artists.CreateArtistInput) (*models.Artist, error) {
	return &models.Artist{ID: uuid.New(), Name: input.Name}, nil
}

func (stubArtistService) Get(ctx context.Context, id uuid.UUID) (*models.Artist, error) {
	return &models.Artist{ID: id}, nil
}

func (stubArtistService) Update(ctx context.Context, id uuid.UUID, input artists.UpdateArtistInput) (*models.Artist, error) {
	return &models.Artist{ID: id}, nil
}

func (stubArtistService) List(ctx context.Context, params pagination.Params) (*artists.ListPage, error) {
	return &artists.ListPage{}, nil
}

type stubVenueService struct{}

func (stubVenueService) Create(ctx context.Context, input venues.CreateVenueInput) (*models.Venue, error) {
	return &models.Venue{ID: uuid.New(), Name: input.Name}, nil
}

func (stubVenueService) Get(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	return &models.Venue{ID: id}, nil
}

func (stubVenueService) Update(ctx context.Context, id uuid.UUID, input venues.UpdateVenueInput) (*models.Venue, error) {
	return &models.Venue{ID: id}, nil
}

func (stubVenueService) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (stubVenueService) List(ctx context.Context, params pagination.Params) (*venues.ListPage, error) {
	return &venues.ListPage{}, nil
}

type stubEventService struct{}

func (stubEventService) Create(ctx context.Context, input events.CreateEventInput) (*models.Event, error) {
	return &models.Event{ID: uuid.New()}, nil
}

func (stubEventService) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return &models.Event{ID: id}, nil
}

func (stubEventService) Update(ctx context.Context, actorID, id uuid.UUID, input events.UpdateEventInput) (*models.Event, error) {
	return &models.Event{ID: id}, nil
}

func (stubEventService) Publish(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	return &models.Event{ID: id, Status: enums.EventStatusPublished}, nil
}

func (stubEventService) Cancel(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	return &models.Event{ID: id, Status: enums.EventStatusCancelled}, nil
}

func (stubEventService) Complete(ctx context.Context, actorID, id uuid.UUID) (*models.Event, error) {
	return &models.Event{ID: id, Status: enums.EventStatusCompleted}, nil
}

func (stubEventService) ListPublished(ctx context.Context, params pagination.Params) (*events.ListPage, error) {
	return &events.ListPage{}, nil
}

func (stubEventService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, params pagination.Params) (*events.ListPage, error) {
	return &events.ListPage{}, nil
}

type stubInventoryService struct{}

func (s stubInventoryService) WithTx(tx *gorm.DB) inventory.Service { return s }

func (stubInventoryService) Reserve(ctx context.Context, eventID uuid.UUID, qty int) error {
	return nil
}

func (stubInventoryService) Release(ctx context.Context, eventID uuid.UUID, qty int) error {
	return nil
}

func (stubInventoryService) Available(ctx context.Context, eventID uuid.UUID) (int, error) {
	return 42, nil
}

type stubBookingService struct{}

func (stubBookingService) Book(ctx context.Context, userID uuid.UUID, req bookings.BookRequest) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{ID: uuid.New()}, nil
}

func (stubBookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{ID: bookingID}, nil
}

func (stubBookingService) Get(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{ID: bookingID}, nil
}

func (stubBookingService) GetReceipt(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.Receipt, error) {
	return &bookings.Receipt{}, nil
}

func (stubBookingService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*bookings.ListPage, error) {
	return &bookings.ListPage{}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
	}
	return NewRouter(RouterParams{
		Config:      cfg,
		Logger:      nil,
		DBPing:      stubPinger{},
		AuthService: stubAuthService{},
		Register:    stubRegisterService{},
		Artists:     stubArtistService{},
		Venues:      stubVenueService{},
		Events:      stubEventService{},
		Inventory:   stubInventoryService{},
		Bookings:    stubBookingService{},
	})
}

func testToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterPublicEventRoutes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/"+uuid.NewString()+"/availability", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterBookingsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, enums.UserRoleFan))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterOrganizerRoutesEnforceRole(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizer/events", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, enums.UserRoleFan))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/organizer/events", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, enums.UserRoleOrganizer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

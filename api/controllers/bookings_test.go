package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmarchetti/stagepass-backend/api/middleware"
	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/pagination"
)

type stubBookingService struct {
	booking *bookings.BookingDTO
	err     error

	gotUserID uuid.UUID
	gotReq    bookings.BookRequest
}

func (s *stubBookingService) Book(ctx context.Context, userID uuid.UUID, req bookings.BookRequest) (*bookings.BookingDTO, error) {
	s.gotUserID = userID
	s.gotReq = req
	return s.booking, s.err
}

func (s *stubBookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
	return s.booking, s.err
}

func (s *stubBookingService) Get(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.BookingDTO, error) {
	return s.booking, s.err
}

func (s *stubBookingService) GetReceipt(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.Receipt, error) {
	return nil, s.err
}

func (s *stubBookingService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*bookings.ListPage, error) {
	return &bookings.ListPage{}, s.err
}

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleFan))
	return req.WithContext(ctx)
}

func TestBookingCreateSuccess(t *testing.T) {
	userID := uuid.New()
	eventID := uuid.New()
	svc := &stubBookingService{
		booking: &bookings.BookingDTO{
			ID:          uuid.New(),
			UserID:      userID,
			EventID:     eventID,
			Tickets:     2,
			UnitPrice:   decimal.RequireFromString("19.99"),
			TotalAmount: decimal.RequireFromString("39.98"),
			Status:      enums.BookingStatusActive,
		},
	}

	payload := []byte(`{"event_id":"` + eventID.String() + `","tickets":2,"payment_method":"card"}`)
	req := authedRequest(http.MethodPost, "/api/v1/bookings", payload, userID)
	resp := httptest.NewRecorder()

	BookingCreate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotUserID != userID {
		t.Fatalf("expected user %s got %s", userID, svc.gotUserID)
	}
	if svc.gotReq.Tickets != 2 || svc.gotReq.EventID != eventID {
		t.Fatalf("unexpected request passed to service: %+v", svc.gotReq)
	}

	var envelope struct {
		Data bookings.BookingDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalAmount.StringFixed(2) != "39.98" {
		t.Fatalf("unexpected total: %s", envelope.Data.TotalAmount)
	}
}

func TestBookingCreateRejectsAnonymous(t *testing.T) {
	svc := &stubBookingService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()

	BookingCreate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestBookingCreateSurfacesShortfall(t *testing.T) {
	svc := &stubBookingService{
		err: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "not enough tickets available").
			WithDetails(inventory.ShortfallDetails{Requested: 5, Available: 2}),
	}

	eventID := uuid.New()
	payload := []byte(`{"event_id":"` + eventID.String() + `","tickets":5,"payment_method":"card"}`)
	req := authedRequest(http.MethodPost, "/api/v1/bookings", payload, uuid.New())
	resp := httptest.NewRecorder()

	BookingCreate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Requested int `json:"requested"`
				Available int `json:"available"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientInventory) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
	if envelope.Error.Details.Available != 2 {
		t.Fatalf("expected shortfall details, got %+v", envelope.Error.Details)
	}
}

func TestBookingCancelRequiresValidID(t *testing.T) {
	svc := &stubBookingService{}
	req := authedRequest(http.MethodPost, "/api/v1/bookings/not-a-uuid/cancel", nil, uuid.New())
	resp := httptest.NewRecorder()

	BookingCancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

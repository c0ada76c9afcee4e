package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/handler"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Mocks ---

type mockBookingService struct {
	availFn   func(ctx context.Context, roomID uuid.UUID, checkIn, checkOut string) (*service.Availability, error)
	createFn  func(ctx context.Context, req service.CreateBookingRequest) (database.Booking, error)
	statusFn  func(ctx context.Context, id uuid.UUID, status string) (database.Booking, error)
	lastReq   service.CreateBookingRequest
	lastState string
}

func (m *mockBookingService) CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut string) (*service.Availability, error) {
	return m.availFn(ctx, roomID, checkIn, checkOut)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (database.Booking, error) {
	m.lastReq = req
	return m.createFn(ctx, req)
}

func (m *mockBookingService) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (database.Booking, error) {
	m.lastState = status
	return m.statusFn(ctx, id, status)
}

type mockBookingStore struct {
	bookings map[uuid.UUID]database.Booking
	listArg  database.ListBookingsParams
}

func (m *mockBookingStore) ListBookings(_ context.Context, arg database.ListBookingsParams) ([]database.Booking, error) {
	m.listArg = arg
	var out []database.Booking
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBookingStore) GetBooking(_ context.Context, id uuid.UUID) (database.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return database.Booking{}, pgx.ErrNoRows
	}
	return b, nil
}

func setupBookingRouter(svc *mockBookingService, store *mockBookingStore) *chi.Mux {
	h := handler.NewBookingHandler(svc, store)
	r := chi.NewRouter()
	r.Route("/public", func(r chi.Router) {
		r.Get("/rooms/{id}/availability", h.Availability)
		h.RegisterPublicRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Route("/bookings", h.RegisterRoutes)
	})
	return r
}

func testBooking(status string) database.Booking {
	return database.Booking{
		ID:          uuid.New(),
		RoomID:      uuid.New(),
		GuestName:   "Sari",
		GuestEmail:  "sari@example.com",
		CheckIn:     testDate("2026-12-20"),
		CheckOut:    testDate("2026-12-23"),
		Guests:      2,
		Status:      status,
		TotalAmount: testNumeric("1950000"),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// --- Availability ---

func TestBookingAvailability(t *testing.T) {
	roomID := uuid.New()
	svc := &mockBookingService{availFn: func(_ context.Context, id uuid.UUID, in, out string) (*service.Availability, error) {
		if id != roomID || in != "2026-12-20" || out != "2026-12-23" {
			t.Errorf("args: %s %s %s", id, in, out)
		}
		return &service.Availability{
			RoomID:    id,
			Stay:      service.Stay{CheckIn: testDate(in).Time, CheckOut: testDate(out).Time},
			Available: true,
			Total:     decimal.RequireFromString("1950000"),
		}, nil
	}}
	r := setupBookingRouter(svc, &mockBookingStore{})

	rr := doRequest(t, r, "GET", "/public/rooms/"+roomID.String()+"/availability?check_in=2026-12-20&check_out=2026-12-23", nil)
	expectStatus(t, rr, http.StatusOK)

	resp := decodeResponse(t, rr)
	if resp["available"] != true || resp["nights"] != float64(3) || resp["total"] != "1950000.00" {
		t.Errorf("availability: got %v", resp)
	}
	if _, ok := resp["reason"]; ok {
		t.Error("available rooms carry no reason")
	}
}

func TestBookingAvailability_Errors(t *testing.T) {
	svc := &mockBookingService{availFn: func(context.Context, uuid.UUID, string, string) (*service.Availability, error) {
		return nil, service.ErrRoomNotFound
	}}
	r := setupBookingRouter(svc, &mockBookingStore{})

	rr := doRequest(t, r, "GET", "/public/rooms/"+uuid.New().String()+"/availability?check_in=2026-12-20", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = doRequest(t, r, "GET", "/public/rooms/abc/availability?check_in=2026-12-20&check_out=2026-12-21", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = doRequest(t, r, "GET", "/public/rooms/"+uuid.New().String()+"/availability?check_in=2026-12-20&check_out=2026-12-21", nil)
	expectStatus(t, rr, http.StatusNotFound)
}

// --- Create ---

func TestBookingCreate_Public(t *testing.T) {
	booking := testBooking("CONFIRMED")
	svc := &mockBookingService{createFn: func(context.Context, service.CreateBookingRequest) (database.Booking, error) {
		return booking, nil
	}}
	r := setupBookingRouter(svc, &mockBookingStore{})

	rr := doRequest(t, r, "POST", "/public/bookings", map[string]interface{}{
		"room_id":     booking.RoomID.String(),
		"guest_name":  "Sari",
		"guest_email": "sari@example.com",
		"check_in":    "2026-12-20",
		"check_out":   "2026-12-23",
		"guests":      2,
	})
	expectStatus(t, rr, http.StatusCreated)

	if svc.lastReq.RoomID != booking.RoomID.String() || svc.lastReq.Guests != 2 {
		t.Errorf("request: got %+v", svc.lastReq)
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "CONFIRMED" || resp["nights"] != float64(3) || resp["total_amount"] != "1950000.00" {
		t.Errorf("booking: got %v", resp)
	}
}

func TestBookingCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrGuestNameRequired, http.StatusBadRequest},
		{service.ErrStayInPast, http.StatusBadRequest},
		{service.ErrTooManyGuests, http.StatusBadRequest},
		{service.ErrRoomNotFound, http.StatusNotFound},
		{service.ErrRoomUnavailable, http.StatusConflict},
		{service.ErrRoomAlreadyBooked, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &mockBookingService{createFn: func(context.Context, service.CreateBookingRequest) (database.Booking, error) {
				return database.Booking{}, tt.err
			}}
			r := setupBookingRouter(svc, &mockBookingStore{})
			rr := doRequest(t, r, "POST", "/public/bookings", map[string]string{"room_id": uuid.New().String()})
			expectStatus(t, rr, tt.want)
		})
	}
}

// --- Front desk ---

func TestBookingRoutes_FrontDeskOnly(t *testing.T) {
	store := &mockBookingStore{bookings: map[uuid.UUID]database.Booking{}}
	r := setupBookingRouter(&mockBookingService{}, store)

	for _, role := range []string{"WAITER", "KITCHEN", "CUSTOMER"} {
		rr := doAuthRequest(t, r, "GET", "/bookings", nil, staffClaims(role))
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s: got %d, want 403", role, rr.Code)
		}
	}
	rr := doRequest(t, r, "GET", "/bookings", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestBookingList_Filters(t *testing.T) {
	b := testBooking("CHECKED_IN")
	store := &mockBookingStore{bookings: map[uuid.UUID]database.Booking{b.ID: b}}
	r := setupBookingRouter(&mockBookingService{}, store)

	rr := doAuthRequest(t, r, "GET", "/bookings?status=checked_in&room_id="+b.RoomID.String(), nil, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusOK)

	if store.listArg.Status.String != "CHECKED_IN" || uuid.UUID(store.listArg.RoomID.Bytes) != b.RoomID {
		t.Errorf("filters: got %+v", store.listArg)
	}
	if bookings, _ := decodeResponse(t, rr)["bookings"].([]interface{}); len(bookings) != 1 {
		t.Errorf("bookings: got %v", bookings)
	}

	rr = doAuthRequest(t, r, "GET", "/bookings?status=LOST", nil, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestBookingGet(t *testing.T) {
	b := testBooking("CONFIRMED")
	store := &mockBookingStore{bookings: map[uuid.UUID]database.Booking{b.ID: b}}
	r := setupBookingRouter(&mockBookingService{}, store)

	rr := doAuthRequest(t, r, "GET", "/bookings/"+b.ID.String(), nil, staffClaims("ADMIN"))
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["guest_email"] != "sari@example.com" {
		t.Errorf("booking: got %v", resp)
	}

	rr = doAuthRequest(t, r, "GET", "/bookings/"+uuid.New().String(), nil, staffClaims("ADMIN"))
	expectStatus(t, rr, http.StatusNotFound)
}

func TestBookingUpdateStatus(t *testing.T) {
	b := testBooking("CHECKED_IN")
	svc := &mockBookingService{statusFn: func(_ context.Context, id uuid.UUID, status string) (database.Booking, error) {
		if id != b.ID {
			return database.Booking{}, service.ErrBookingNotFound
		}
		if status != "CHECKED_OUT" {
			return database.Booking{}, service.ErrInvalidBookingState
		}
		out := b
		out.Status = status
		return out, nil
	}}
	r := setupBookingRouter(svc, &mockBookingStore{})

	rr := doAuthRequest(t, r, "POST", "/bookings/"+b.ID.String()+"/status", map[string]string{"status": "checked_out"}, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusOK)
	if svc.lastState != "CHECKED_OUT" {
		t.Errorf("status should be uppercased, got %q", svc.lastState)
	}

	rr = doAuthRequest(t, r, "POST", "/bookings/"+b.ID.String()+"/status", map[string]string{"status": "CONFIRMED"}, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusConflict)

	rr = doAuthRequest(t, r, "POST", "/bookings/"+uuid.New().String()+"/status", map[string]string{"status": "CHECKED_OUT"}, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusNotFound)

	rr = doAuthRequest(t, r, "POST", "/bookings/"+b.ID.String()+"/status", map[string]string{}, staffClaims("RECEPTIONIST"))
	expectStatus(t, rr, http.StatusBadRequest)
}

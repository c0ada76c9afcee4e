package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/innstay/api/internal/listing"
	"github.com/innstay/api/internal/middleware"
	"github.com/innstay/api/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
)

// BookingServicer is the booking logic the handlers need.
type BookingServicer interface {
	CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut string) (*service.Availability, error)
	CreateBooking(ctx context.Context, req service.CreateBookingRequest) (database.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (database.Booking, error)
}

// BookingStore defines the database methods needed by booking handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BookingStore interface {
	ListBookings(ctx context.Context, arg database.ListBookingsParams) ([]database.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (database.Booking, error)
}

// BookingHandler handles room booking endpoints.
type BookingHandler struct {
	svc   BookingServicer
	store BookingStore
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(svc BookingServicer, store BookingStore) *BookingHandler {
	return &BookingHandler{svc: svc, store: store}
}

// RegisterPublicRoutes registers guest booking. Expected to be mounted at
// /public. Availability is served by Availability under /public/rooms.
func (h *BookingHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/bookings", h.Create)
}

// RegisterRoutes registers the front desk endpoints. Expected to be mounted
// at /bookings behind Authenticate.
func (h *BookingHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.UserRoleReceptionist, enum.UserRoleAdmin))
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createBookingRequest struct {
	RoomID     string `json:"room_id"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int32  `json:"guests"`
}

type bookingStatusRequest struct {
	Status string `json:"status"`
}

type bookingResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	GuestPhone  *string   `json:"guest_phone"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	Nights      int       `json:"nights"`
	Guests      int32     `json:"guests"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type bookingListResponse struct {
	Bookings []bookingResponse `json:"bookings"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type availabilityResponse struct {
	RoomID    uuid.UUID `json:"room_id"`
	CheckIn   string    `json:"check_in"`
	CheckOut  string    `json:"check_out"`
	Nights    int       `json:"nights"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Total     string    `json:"total"`
}

func toBookingResponse(b database.Booking) bookingResponse {
	resp := bookingResponse{
		ID:          b.ID,
		RoomID:      b.RoomID,
		GuestName:   b.GuestName,
		GuestEmail:  b.GuestEmail,
		GuestPhone:  textPtr(b.GuestPhone),
		CheckIn:     dateString(b.CheckIn),
		CheckOut:    dateString(b.CheckOut),
		Guests:      b.Guests,
		Status:      b.Status,
		TotalAmount: numericToString(b.TotalAmount),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.CheckIn.Valid && b.CheckOut.Valid {
		resp.Nights = service.Stay{CheckIn: b.CheckIn.Time, CheckOut: b.CheckOut.Time}.Nights()
	}
	return resp
}

var bookingErrors = newErrorMapper().
	withAll(http.StatusBadRequest,
		service.ErrInvalidRoomID,
		service.ErrInvalidStayDates,
		service.ErrInvalidDateFormat,
		service.ErrStayInPast,
		service.ErrInvalidGuests,
		service.ErrGuestNameRequired,
		service.ErrGuestEmailRequired,
		service.ErrTooManyGuests,
	).
	withAll(http.StatusNotFound, service.ErrRoomNotFound, service.ErrBookingNotFound).
	withAll(http.StatusConflict,
		service.ErrRoomUnavailable,
		service.ErrRoomAlreadyBooked,
		service.ErrInvalidBookingState,
		service.ErrBookingStateChanged,
	)

// --- Handlers ---

// Availability handles GET /public/rooms/{id}/availability?check_in&check_out.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	q := r.URL.Query()
	if q.Get("check_in") == "" || q.Get("check_out") == "" {
		writeError(w, http.StatusBadRequest, "check_in and check_out are required")
		return
	}

	avail, err := h.svc.CheckAvailability(r.Context(), id, q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		bookingErrors.write(w, "check availability", err)
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		RoomID:    avail.RoomID,
		CheckIn:   avail.Stay.CheckIn.Format(dateLayout),
		CheckOut:  avail.Stay.CheckOut.Format(dateLayout),
		Nights:    avail.Stay.Nights(),
		Available: avail.Available,
		Reason:    avail.Reason,
		Total:     avail.Total.StringFixed(2),
	})
}

// Create handles POST /public/bookings and POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), service.CreateBookingRequest{
		RoomID:     req.RoomID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Guests:     req.Guests,
	})
	if err != nil {
		bookingErrors.write(w, "create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// List handles GET /bookings with optional room_id and status filters.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := listing.ParsePage(q, defaultPageLimit, maxPageLimit)
	params := database.ListBookingsParams{
		Limit:  int32(page.Limit),
		Offset: int32(page.Offset),
	}

	roomID, err := optionalUUID(q.Get("room_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room_id")
		return
	}
	params.RoomID = roomID

	if s := q.Get("status"); s != "" {
		status := strings.ToUpper(s)
		switch status {
		case enum.BookingStatusConfirmed, enum.BookingStatusCheckedIn,
			enum.BookingStatusCheckedOut, enum.BookingStatusCancelled:
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = pgtype.Text{String: status, Valid: true}
	}

	bookings, err := h.store.ListBookings(r.Context(), params)
	if err != nil {
		writeInternal(w, "list bookings", err)
		return
	}

	resp := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	writeJSON(w, http.StatusOK, bookingListResponse{
		Bookings: resp,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	b, err := h.store.GetBooking(r.Context(), id)
	if err != nil {
		notFound(w, "get booking", err, "booking")
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// UpdateStatus handles POST /bookings/{id}/status: check in, check out or
// cancel.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	var req bookingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, errRequired("status").Error())
		return
	}

	b, err := h.svc.UpdateBookingStatus(r.Context(), id, strings.ToUpper(req.Status))
	if err != nil {
		bookingErrors.write(w, "update booking status", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

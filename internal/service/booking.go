package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Errors returned by the booking service.
var (
	ErrInvalidRoomID       = errors.New("invalid room_id")
	ErrInvalidStayDates    = errors.New("check_out must be after check_in")
	ErrInvalidDateFormat   = errors.New("dates must use YYYY-MM-DD")
	ErrStayInPast          = errors.New("check_in cannot be in the past")
	ErrInvalidGuests       = errors.New("guests must be > 0")
	ErrGuestNameRequired   = errors.New("guest_name is required")
	ErrGuestEmailRequired  = errors.New("guest_email is required")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomUnavailable     = errors.New("room is under maintenance")
	ErrTooManyGuests       = errors.New("guests exceed room capacity")
	ErrRoomAlreadyBooked   = errors.New("room is already booked for these dates")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidBookingState = errors.New("invalid booking status transition")
	ErrBookingStateChanged = errors.New("booking status changed, please retry")
)

// BookingStore defines the DB methods needed by the booking service.
// Satisfied by *database.Queries (and its WithTx variant).
type BookingStore interface {
	GetRoom(ctx context.Context, id uuid.UUID) (database.Room, error)
	LockRoom(ctx context.Context, id uuid.UUID) (database.Room, error)
	UpdateRoomStatus(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error)
	CountOverlappingBookings(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error)
	CreateBooking(ctx context.Context, arg database.CreateBookingParams) (database.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (database.Booking, error)
	UpdateBookingStatus(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error)
}

type NewBookingStore func(db database.DBTX) BookingStore

// Stay is a validated check-in/check-out pair.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// ParseStay parses YYYY-MM-DD dates and checks that the stay is at least one
// night and does not start before today. Today is the calendar date of the
// today argument in its own location.
func ParseStay(checkIn, checkOut string, today time.Time) (Stay, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return Stay{}, ErrInvalidDateFormat
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return Stay{}, ErrInvalidDateFormat
	}
	if !out.After(in) {
		return Stay{}, ErrInvalidStayDates
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if in.Before(day) {
		return Stay{}, ErrStayInPast
	}
	return Stay{CheckIn: in, CheckOut: out}, nil
}

// Availability answers whether a room can be booked for a stay and what it
// would cost.
type Availability struct {
	RoomID    uuid.UUID
	Stay      Stay
	Available bool
	Reason    string
	Total     decimal.Decimal
}

type CreateBookingRequest struct {
	RoomID     string
	GuestName  string
	GuestEmail string
	GuestPhone string
	CheckIn    string
	CheckOut   string
	Guests     int32
}

// BookingService handles room booking business logic.
type BookingService struct {
	pool     TxBeginner
	newStore NewBookingStore
	loc      *time.Location
	now      func() time.Time
}

// NewBookingService creates a BookingService. Stays are checked against the
// hotel's calendar in loc; nil means UTC.
func NewBookingService(pool TxBeginner, newStore NewBookingStore, loc *time.Location) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{pool: pool, newStore: newStore, loc: loc, now: time.Now}
}

func (s *BookingService) today() time.Time {
	return s.now().In(s.loc)
}

// CheckAvailability reports whether roomID is free for the stay.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut string) (*Availability, error) {
	stay, err := ParseStay(checkIn, checkOut, s.today())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	avail := &Availability{
		RoomID:    roomID,
		Stay:      stay,
		Available: true,
		Total:     stayTotal(room, stay),
	}
	if room.Status == enum.RoomStatusMaintenance {
		avail.Available = false
		avail.Reason = ErrRoomUnavailable.Error()
		return avail, nil
	}

	n, err := store.CountOverlappingBookings(ctx, overlapParams(roomID, stay))
	if err != nil {
		return nil, fmt.Errorf("count overlapping bookings: %w", err)
	}
	if n > 0 {
		avail.Available = false
		avail.Reason = ErrRoomAlreadyBooked.Error()
	}
	return avail, nil
}

// CreateBooking books a room. The room row is locked for the duration of the
// transaction so two overlapping requests cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (database.Booking, error) {
	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return database.Booking{}, ErrInvalidRoomID
	}
	if strings.TrimSpace(req.GuestName) == "" {
		return database.Booking{}, ErrGuestNameRequired
	}
	if strings.TrimSpace(req.GuestEmail) == "" {
		return database.Booking{}, ErrGuestEmailRequired
	}
	if req.Guests <= 0 {
		return database.Booking{}, ErrInvalidGuests
	}
	stay, err := ParseStay(req.CheckIn, req.CheckOut, s.today())
	if err != nil {
		return database.Booking{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	room, err := store.LockRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Booking{}, ErrRoomNotFound
		}
		return database.Booking{}, fmt.Errorf("lock room: %w", err)
	}
	if room.Status == enum.RoomStatusMaintenance {
		return database.Booking{}, ErrRoomUnavailable
	}
	if req.Guests > room.Capacity {
		return database.Booking{}, ErrTooManyGuests
	}

	n, err := store.CountOverlappingBookings(ctx, overlapParams(roomID, stay))
	if err != nil {
		return database.Booking{}, fmt.Errorf("count overlapping bookings: %w", err)
	}
	if n > 0 {
		return database.Booking{}, ErrRoomAlreadyBooked
	}

	booking, err := store.CreateBooking(ctx, database.CreateBookingParams{
		RoomID:      roomID,
		GuestName:   strings.TrimSpace(req.GuestName),
		GuestEmail:  strings.ToLower(strings.TrimSpace(req.GuestEmail)),
		GuestPhone:  optionalText(req.GuestPhone),
		CheckIn:     pgtype.Date{Time: stay.CheckIn, Valid: true},
		CheckOut:    pgtype.Date{Time: stay.CheckOut, Valid: true},
		Guests:      req.Guests,
		TotalAmount: decimalToNumeric(stayTotal(room, stay)),
	})
	if err != nil {
		return database.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Booking{}, fmt.Errorf("commit tx: %w", err)
	}
	return booking, nil
}

// bookingTransitions maps a booking status to the statuses it may move to.
var bookingTransitions = map[string][]string{
	enum.BookingStatusConfirmed: {enum.BookingStatusCheckedIn, enum.BookingStatusCancelled},
	enum.BookingStatusCheckedIn: {enum.BookingStatusCheckedOut},
}

func ValidateBookingTransition(from, to string) error {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidBookingState, from, to)
}

// UpdateBookingStatus moves a booking along its lifecycle and keeps the room
// status in step: checking in occupies the room, checking out frees it.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string) (database.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Booking{}, ErrBookingNotFound
		}
		return database.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if err := ValidateBookingTransition(current.Status, status); err != nil {
		return database.Booking{}, err
	}

	updated, err := store.UpdateBookingStatus(ctx, database.UpdateBookingStatusParams{
		ID:             id,
		Status:         status,
		ExpectedStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Booking{}, ErrBookingStateChanged
		}
		return database.Booking{}, fmt.Errorf("update booking status: %w", err)
	}

	roomStatus := ""
	switch status {
	case enum.BookingStatusCheckedIn:
		roomStatus = enum.RoomStatusOccupied
	case enum.BookingStatusCheckedOut:
		roomStatus = enum.RoomStatusAvailable
	}
	if roomStatus != "" {
		if _, err := store.UpdateRoomStatus(ctx, database.UpdateRoomStatusParams{
			ID:     updated.RoomID,
			Status: roomStatus,
		}); err != nil {
			return database.Booking{}, fmt.Errorf("update room status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Booking{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

func overlapParams(roomID uuid.UUID, stay Stay) database.CountOverlappingBookingsParams {
	return database.CountOverlappingBookingsParams{
		RoomID:   roomID,
		CheckIn:  pgtype.Date{Time: stay.CheckIn, Valid: true},
		CheckOut: pgtype.Date{Time: stay.CheckOut, Valid: true},
	}
}

func stayTotal(room database.Room, stay Stay) decimal.Decimal {
	return numericToDecimal(room.PricePerNight).Mul(decimal.NewFromInt(int64(stay.Nights())))
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/innstay/api/internal/database"
	"github.com/jackc/pgx/v5"
)

// mockBookingStore implements BookingStore with configurable behavior.
type mockBookingStore struct {
	getRoomFn             func(ctx context.Context, id uuid.UUID) (database.Room, error)
	lockRoomFn            func(ctx context.Context, id uuid.UUID) (database.Room, error)
	updateRoomStatusFn    func(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error)
	countOverlappingFn    func(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error)
	createBookingFn       func(ctx context.Context, arg database.CreateBookingParams) (database.Booking, error)
	getBookingFn          func(ctx context.Context, id uuid.UUID) (database.Booking, error)
	updateBookingStatusFn func(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error)
}

func (m *mockBookingStore) GetRoom(ctx context.Context, id uuid.UUID) (database.Room, error) {
	return m.getRoomFn(ctx, id)
}
func (m *mockBookingStore) LockRoom(ctx context.Context, id uuid.UUID) (database.Room, error) {
	return m.lockRoomFn(ctx, id)
}
func (m *mockBookingStore) UpdateRoomStatus(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error) {
	return m.updateRoomStatusFn(ctx, arg)
}
func (m *mockBookingStore) CountOverlappingBookings(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error) {
	return m.countOverlappingFn(ctx, arg)
}
func (m *mockBookingStore) CreateBooking(ctx context.Context, arg database.CreateBookingParams) (database.Booking, error) {
	return m.createBookingFn(ctx, arg)
}
func (m *mockBookingStore) GetBooking(ctx context.Context, id uuid.UUID) (database.Booking, error) {
	return m.getBookingFn(ctx, id)
}
func (m *mockBookingStore) UpdateBookingStatus(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error) {
	return m.updateBookingStatusFn(ctx, arg)
}

var bookingToday = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func defaultBookingStore(room database.Room) *mockBookingStore {
	find := func(ctx context.Context, id uuid.UUID) (database.Room, error) {
		if id == room.ID {
			return room, nil
		}
		return database.Room{}, pgx.ErrNoRows
	}
	return &mockBookingStore{
		getRoomFn:  find,
		lockRoomFn: find,
		updateRoomStatusFn: func(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error) {
			r := room
			r.Status = arg.Status
			return r, nil
		},
		countOverlappingFn: func(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error) {
			return 0, nil
		},
		createBookingFn: func(ctx context.Context, arg database.CreateBookingParams) (database.Booking, error) {
			return database.Booking{
				ID:          uuid.New(),
				RoomID:      arg.RoomID,
				GuestName:   arg.GuestName,
				GuestEmail:  arg.GuestEmail,
				CheckIn:     arg.CheckIn,
				CheckOut:    arg.CheckOut,
				Guests:      arg.Guests,
				Status:      "CONFIRMED",
				TotalAmount: arg.TotalAmount,
			}, nil
		},
		getBookingFn: func(ctx context.Context, id uuid.UUID) (database.Booking, error) {
			return database.Booking{}, pgx.ErrNoRows
		},
		updateBookingStatusFn: func(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error) {
			return database.Booking{}, pgx.ErrNoRows
		},
	}
}

func newTestBookingService(store *mockBookingStore) (*BookingService, *mockTx) {
	tx := &mockTx{}
	svc := NewBookingService(&mockTxBeginner{tx: tx}, func(db database.DBTX) BookingStore { return store }, time.UTC)
	svc.now = func() time.Time { return bookingToday }
	return svc, tx
}

func deluxeRoom() database.Room {
	return database.Room{
		ID:            uuid.New(),
		Number:        "301",
		RoomType:      "DELUXE",
		PricePerNight: makeNumeric("750000.00"),
		Capacity:      2,
		Status:        "AVAILABLE",
	}
}

func bookingReq(roomID uuid.UUID) CreateBookingRequest {
	return CreateBookingRequest{
		RoomID:     roomID.String(),
		GuestName:  "Rina Putri",
		GuestEmail: " Rina@Example.com ",
		CheckIn:    "2026-06-10",
		CheckOut:   "2026-06-13",
		Guests:     2,
	}
}

func TestParseStay(t *testing.T) {
	tests := []struct {
		name     string
		in, out  string
		wantErr  error
		wantNite int
	}{
		{"three nights", "2026-06-10", "2026-06-13", nil, 3},
		{"same day", "2026-06-10", "2026-06-10", ErrInvalidStayDates, 0},
		{"reversed", "2026-06-12", "2026-06-10", ErrInvalidStayDates, 0},
		{"bad format", "10/06/2026", "2026-06-13", ErrInvalidDateFormat, 0},
		{"past", "2026-05-30", "2026-06-02", ErrStayInPast, 0},
		{"today is fine", "2026-06-01", "2026-06-02", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stay, err := ParseStay(tt.in, tt.out, bookingToday)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if err == nil && stay.Nights() != tt.wantNite {
				t.Errorf("nights: got %d, want %d", stay.Nights(), tt.wantNite)
			}
		})
	}
}

func TestCheckAvailability_HotelCalendar(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	room := deluxeRoom()
	svc := NewBookingService(&mockTxBeginner{tx: &mockTx{}}, func(db database.DBTX) BookingStore {
		return defaultBookingStore(room)
	}, loc)
	// 20:00 UTC on May 31 is already June 1 in Jakarta.
	svc.now = func() time.Time { return time.Date(2026, 5, 31, 20, 0, 0, 0, time.UTC) }

	if _, err := svc.CheckAvailability(context.Background(), room.ID, "2026-05-31", "2026-06-02"); !errors.Is(err, ErrStayInPast) {
		t.Errorf("yesterday in the hotel's zone: got %v, want ErrStayInPast", err)
	}
	avail, err := svc.CheckAvailability(context.Background(), room.ID, "2026-06-01", "2026-06-02")
	if err != nil {
		t.Fatalf("today in the hotel's zone: %v", err)
	}
	if !avail.Available {
		t.Errorf("expected available, got %+v", avail)
	}

	utc := NewBookingService(&mockTxBeginner{tx: &mockTx{}}, func(db database.DBTX) BookingStore {
		return defaultBookingStore(room)
	}, nil)
	utc.now = svc.now
	if _, err := utc.CheckAvailability(context.Background(), room.ID, "2026-05-31", "2026-06-02"); err != nil {
		t.Errorf("still May 31 in UTC: %v", err)
	}
}

func TestCreateBooking_HappyPath(t *testing.T) {
	room := deluxeRoom()
	svc, tx := newTestBookingService(defaultBookingStore(room))

	b, err := svc.CreateBooking(context.Background(), bookingReq(room.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(b.TotalAmount, "2250000") {
		t.Errorf("total: got %v, want 2250000", numericToDecimal(b.TotalAmount))
	}
	if b.GuestEmail != "rina@example.com" {
		t.Errorf("email not normalised: %q", b.GuestEmail)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	room := deluxeRoom()
	svc, _ := newTestBookingService(defaultBookingStore(room))

	tests := []struct {
		name   string
		mutate func(*CreateBookingRequest)
		want   error
	}{
		{"bad room id", func(r *CreateBookingRequest) { r.RoomID = "x" }, ErrInvalidRoomID},
		{"no name", func(r *CreateBookingRequest) { r.GuestName = " " }, ErrGuestNameRequired},
		{"no email", func(r *CreateBookingRequest) { r.GuestEmail = "" }, ErrGuestEmailRequired},
		{"no guests", func(r *CreateBookingRequest) { r.Guests = 0 }, ErrInvalidGuests},
		{"too many guests", func(r *CreateBookingRequest) { r.Guests = 3 }, ErrTooManyGuests},
		{"unknown room", func(r *CreateBookingRequest) { r.RoomID = uuid.New().String() }, ErrRoomNotFound},
		{"bad dates", func(r *CreateBookingRequest) { r.CheckOut = r.CheckIn }, ErrInvalidStayDates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := bookingReq(room.ID)
			tt.mutate(&req)
			if _, err := svc.CreateBooking(context.Background(), req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateBooking_Overlap(t *testing.T) {
	room := deluxeRoom()
	store := defaultBookingStore(room)
	store.countOverlappingFn = func(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error) {
		if arg.RoomID != room.ID {
			t.Errorf("room id: got %v", arg.RoomID)
		}
		return 1, nil
	}
	svc, tx := newTestBookingService(store)

	_, err := svc.CreateBooking(context.Background(), bookingReq(room.ID))
	if !errors.Is(err, ErrRoomAlreadyBooked) {
		t.Fatalf("expected ErrRoomAlreadyBooked, got %v", err)
	}
	if tx.committed {
		t.Error("must not commit on conflict")
	}
}

func TestCreateBooking_Maintenance(t *testing.T) {
	room := deluxeRoom()
	room.Status = "MAINTENANCE"
	svc, _ := newTestBookingService(defaultBookingStore(room))

	if _, err := svc.CreateBooking(context.Background(), bookingReq(room.ID)); !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	room := deluxeRoom()
	store := defaultBookingStore(room)
	svc, _ := newTestBookingService(store)

	avail, err := svc.CheckAvailability(context.Background(), room.ID, "2026-06-10", "2026-06-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !avail.Available || avail.Total.String() != "1500000" {
		t.Errorf("availability: %+v", avail)
	}

	store.countOverlappingFn = func(ctx context.Context, arg database.CountOverlappingBookingsParams) (int64, error) {
		return 2, nil
	}
	avail, err = svc.CheckAvailability(context.Background(), room.ID, "2026-06-10", "2026-06-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avail.Available || avail.Reason == "" {
		t.Errorf("expected unavailable with reason, got %+v", avail)
	}
}

func TestValidateBookingTransition(t *testing.T) {
	if err := ValidateBookingTransition("CONFIRMED", "CHECKED_IN"); err != nil {
		t.Errorf("confirmed -> checked in: %v", err)
	}
	if err := ValidateBookingTransition("CHECKED_OUT", "CHECKED_IN"); !errors.Is(err, ErrInvalidBookingState) {
		t.Errorf("checked out -> checked in: got %v", err)
	}
	if err := ValidateBookingTransition("CHECKED_IN", "CANCELLED"); !errors.Is(err, ErrInvalidBookingState) {
		t.Errorf("checked in -> cancelled: got %v", err)
	}
}

func TestUpdateBookingStatus_CheckInOccupiesRoom(t *testing.T) {
	room := deluxeRoom()
	bookingID := uuid.New()
	store := defaultBookingStore(room)
	store.getBookingFn = func(ctx context.Context, id uuid.UUID) (database.Booking, error) {
		return database.Booking{ID: bookingID, RoomID: room.ID, Status: "CONFIRMED"}, nil
	}
	store.updateBookingStatusFn = func(ctx context.Context, arg database.UpdateBookingStatusParams) (database.Booking, error) {
		if arg.ExpectedStatus != "CONFIRMED" {
			t.Errorf("compare status: got %s", arg.ExpectedStatus)
		}
		return database.Booking{ID: arg.ID, RoomID: room.ID, Status: arg.Status}, nil
	}
	var roomStatus string
	store.updateRoomStatusFn = func(ctx context.Context, arg database.UpdateRoomStatusParams) (database.Room, error) {
		roomStatus = arg.Status
		return room, nil
	}
	svc, _ := newTestBookingService(store)

	b, err := svc.UpdateBookingStatus(context.Background(), bookingID, "CHECKED_IN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != "CHECKED_IN" {
		t.Errorf("status: got %s", b.Status)
	}
	if roomStatus != "OCCUPIED" {
		t.Errorf("room status: got %q, want OCCUPIED", roomStatus)
	}
}

func TestUpdateBookingStatus_LostRace(t *testing.T) {
	room := deluxeRoom()
	store := defaultBookingStore(room)
	store.getBookingFn = func(ctx context.Context, id uuid.UUID) (database.Booking, error) {
		return database.Booking{ID: id, RoomID: room.ID, Status: "CONFIRMED"}, nil
	}
	svc, _ := newTestBookingService(store)

	_, err := svc.UpdateBookingStatus(context.Background(), uuid.New(), "CANCELLED")
	if !errors.Is(err, ErrBookingStateChanged) {
		t.Fatalf("expected ErrBookingStateChanged, got %v", err)
	}
}

func TestUpdateBookingStatus_NotFound(t *testing.T) {
	svc, _ := newTestBookingService(defaultBookingStore(deluxeRoom()))

	if _, err := svc.UpdateBookingStatus(context.Background(), uuid.New(), "CANCELLED"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const bookingColumns = `id, room_id, guest_name, guest_email, guest_phone, check_in, check_out, guests, status, total_amount, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (Booking, error) {
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.RoomID,
		&i.GuestName,
		&i.GuestEmail,
		&i.GuestPhone,
		&i.CheckIn,
		&i.CheckOut,
		&i.Guests,
		&i.Status,
		&i.TotalAmount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const lockRoom = `
SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`

// LockRoom reads a room and holds a row lock on it until the transaction
// ends, serializing concurrent bookings for the same room.
func (q *Queries) LockRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	return scanRoom(q.db.QueryRow(ctx, lockRoom, id))
}

const countOverlappingBookings = `
SELECT count(*) FROM bookings
WHERE room_id = $1
  AND status <> 'CANCELLED'
  AND check_in < $3
  AND check_out > $2`

type CountOverlappingBookingsParams struct {
	RoomID   uuid.UUID   `json:"room_id"`
	CheckIn  pgtype.Date `json:"check_in"`
	CheckOut pgtype.Date `json:"check_out"`
}

func (q *Queries) CountOverlappingBookings(ctx context.Context, arg CountOverlappingBookingsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOverlappingBookings, arg.RoomID, arg.CheckIn, arg.CheckOut)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createBooking = `
INSERT INTO bookings (room_id, guest_name, guest_email, guest_phone, check_in, check_out, guests, total_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + bookingColumns

type CreateBookingParams struct {
	RoomID      uuid.UUID      `json:"room_id"`
	GuestName   string         `json:"guest_name"`
	GuestEmail  string         `json:"guest_email"`
	GuestPhone  pgtype.Text    `json:"guest_phone"`
	CheckIn     pgtype.Date    `json:"check_in"`
	CheckOut    pgtype.Date    `json:"check_out"`
	Guests      int32          `json:"guests"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRow(ctx, createBooking,
		arg.RoomID,
		arg.GuestName,
		arg.GuestEmail,
		arg.GuestPhone,
		arg.CheckIn,
		arg.CheckOut,
		arg.Guests,
		arg.TotalAmount,
	)
	return scanBooking(row)
}

const getBooking = `
SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

func (q *Queries) GetBooking(ctx context.Context, id uuid.UUID) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, getBooking, id))
}

const getBookingForUpdate = `
SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1
FOR NO KEY UPDATE`

func (q *Queries) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, getBookingForUpdate, id))
}

const listBookings = `
SELECT ` + bookingColumns + ` FROM bookings
WHERE ($1::uuid IS NULL OR room_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY check_in DESC
LIMIT $3 OFFSET $4`

type ListBookingsParams struct {
	RoomID pgtype.UUID `json:"room_id"`
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListBookings(ctx context.Context, arg ListBookingsParams) ([]Booking, error) {
	rows, err := q.db.Query(ctx, listBookings, arg.RoomID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Booking{}
	for rows.Next() {
		i, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateBookingStatus = `
UPDATE bookings SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + bookingColumns

type UpdateBookingStatusParams struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	ExpectedStatus string    `json:"expected_status"`
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, updateBookingStatus, arg.ID, arg.Status, arg.ExpectedStatus))
}

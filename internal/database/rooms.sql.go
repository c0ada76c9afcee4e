package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const roomColumns = `id, number, room_type, price_per_night, capacity, status, description, amenities, image_url, created_at, updated_at`

func scanRoom(row interface{ Scan(...interface{}) error }) (Room, error) {
	var i Room
	err := row.Scan(
		&i.ID,
		&i.Number,
		&i.RoomType,
		&i.PricePerNight,
		&i.Capacity,
		&i.Status,
		&i.Description,
		&i.Amenities,
		&i.ImageUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createRoom = `
INSERT INTO rooms (number, room_type, price_per_night, capacity, status, description, amenities, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + roomColumns

type CreateRoomParams struct {
	Number        string         `json:"number"`
	RoomType      string         `json:"room_type"`
	PricePerNight pgtype.Numeric `json:"price_per_night"`
	Capacity      int32          `json:"capacity"`
	Status        string         `json:"status"`
	Description   pgtype.Text    `json:"description"`
	Amenities     []string       `json:"amenities"`
	ImageUrl      pgtype.Text    `json:"image_url"`
}

func (q *Queries) CreateRoom(ctx context.Context, arg CreateRoomParams) (Room, error) {
	row := q.db.QueryRow(ctx, createRoom,
		arg.Number,
		arg.RoomType,
		arg.PricePerNight,
		arg.Capacity,
		arg.Status,
		arg.Description,
		arg.Amenities,
		arg.ImageUrl,
	)
	return scanRoom(row)
}

const getRoom = `
SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

func (q *Queries) GetRoom(ctx context.Context, id uuid.UUID) (Room, error) {
	return scanRoom(q.db.QueryRow(ctx, getRoom, id))
}

const listRooms = `
SELECT ` + roomColumns + ` FROM rooms ORDER BY number`

func (q *Queries) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := q.db.Query(ctx, listRooms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Room{}
	for rows.Next() {
		i, err := scanRoom(rows)
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

const updateRoom = `
UPDATE rooms
SET number = $2, room_type = $3, price_per_night = $4, capacity = $5, status = $6,
    description = $7, amenities = $8, image_url = $9, updated_at = now()
WHERE id = $1
RETURNING ` + roomColumns

type UpdateRoomParams struct {
	ID            uuid.UUID      `json:"id"`
	Number        string         `json:"number"`
	RoomType      string         `json:"room_type"`
	PricePerNight pgtype.Numeric `json:"price_per_night"`
	Capacity      int32          `json:"capacity"`
	Status        string         `json:"status"`
	Description   pgtype.Text    `json:"description"`
	Amenities     []string       `json:"amenities"`
	ImageUrl      pgtype.Text    `json:"image_url"`
}

func (q *Queries) UpdateRoom(ctx context.Context, arg UpdateRoomParams) (Room, error) {
	row := q.db.QueryRow(ctx, updateRoom,
		arg.ID,
		arg.Number,
		arg.RoomType,
		arg.PricePerNight,
		arg.Capacity,
		arg.Status,
		arg.Description,
		arg.Amenities,
		arg.ImageUrl,
	)
	return scanRoom(row)
}

const deleteRoom = `
DELETE FROM rooms WHERE id = $1
RETURNING id`

func (q *Queries) DeleteRoom(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteRoom, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

const updateRoomStatus = `
UPDATE rooms SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + roomColumns

type UpdateRoomStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateRoomStatus(ctx context.Context, arg UpdateRoomStatusParams) (Room, error) {
	return scanRoom(q.db.QueryRow(ctx, updateRoomStatus, arg.ID, arg.Status))
}

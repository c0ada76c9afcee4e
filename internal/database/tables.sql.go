package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, number, capacity, location, status, qr_token, created_at, updated_at`

func scanDiningTable(row interface{ Scan(...interface{}) error }) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.Number,
		&i.Capacity,
		&i.Location,
		&i.Status,
		&i.QrToken,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createDiningTable = `
INSERT INTO dining_tables (number, capacity, location, status, qr_token)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + tableColumns

type CreateDiningTableParams struct {
	Number   int32       `json:"number"`
	Capacity int32       `json:"capacity"`
	Location pgtype.Text `json:"location"`
	Status   string      `json:"status"`
	QrToken  string      `json:"qr_token"`
}

func (q *Queries) CreateDiningTable(ctx context.Context, arg CreateDiningTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, createDiningTable,
		arg.Number,
		arg.Capacity,
		arg.Location,
		arg.Status,
		arg.QrToken,
	)
	return scanDiningTable(row)
}

const getDiningTable = `
SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1`

func (q *Queries) GetDiningTable(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getDiningTable, id))
}

const getDiningTableByQRToken = `
SELECT ` + tableColumns + ` FROM dining_tables WHERE qr_token = $1`

func (q *Queries) GetDiningTableByQRToken(ctx context.Context, qrToken string) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getDiningTableByQRToken, qrToken))
}

const listDiningTables = `
SELECT ` + tableColumns + ` FROM dining_tables ORDER BY number`

func (q *Queries) ListDiningTables(ctx context.Context) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listDiningTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DiningTable{}
	for rows.Next() {
		i, err := scanDiningTable(rows)
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

const updateDiningTable = `
UPDATE dining_tables
SET number = $2, capacity = $3, location = $4, status = $5, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type UpdateDiningTableParams struct {
	ID       uuid.UUID   `json:"id"`
	Number   int32       `json:"number"`
	Capacity int32       `json:"capacity"`
	Location pgtype.Text `json:"location"`
	Status   string      `json:"status"`
}

func (q *Queries) UpdateDiningTable(ctx context.Context, arg UpdateDiningTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, updateDiningTable,
		arg.ID,
		arg.Number,
		arg.Capacity,
		arg.Location,
		arg.Status,
	)
	return scanDiningTable(row)
}

const updateDiningTableQRToken = `
UPDATE dining_tables SET qr_token = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type UpdateDiningTableQRTokenParams struct {
	ID      uuid.UUID `json:"id"`
	QrToken string    `json:"qr_token"`
}

func (q *Queries) UpdateDiningTableQRToken(ctx context.Context, arg UpdateDiningTableQRTokenParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, updateDiningTableQRToken, arg.ID, arg.QrToken))
}

const deleteDiningTable = `
DELETE FROM dining_tables WHERE id = $1
RETURNING id`

func (q *Queries) DeleteDiningTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteDiningTable, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

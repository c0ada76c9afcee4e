package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, booking_id, method, amount, reference, processed_by, processed_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.BookingID,
		&i.Method,
		&i.Amount,
		&i.Reference,
		&i.ProcessedBy,
		&i.ProcessedAt,
	)
	return i, err
}

const createPayment = `
INSERT INTO payments (order_id, booking_id, method, amount, reference, processed_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID     pgtype.UUID    `json:"order_id"`
	BookingID   pgtype.UUID    `json:"booking_id"`
	Method      string         `json:"method"`
	Amount      pgtype.Numeric `json:"amount"`
	Reference   pgtype.Text    `json:"reference"`
	ProcessedBy uuid.UUID      `json:"processed_by"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.BookingID,
		arg.Method,
		arg.Amount,
		arg.Reference,
		arg.ProcessedBy,
	)
	return scanPayment(row)
}

const listPayments = `
SELECT ` + paymentColumns + ` FROM payments
WHERE ($1::uuid IS NULL OR order_id = $1)
  AND ($2::uuid IS NULL OR booking_id = $2)
ORDER BY processed_at DESC
LIMIT $3 OFFSET $4`

type ListPaymentsParams struct {
	OrderID   pgtype.UUID `json:"order_id"`
	BookingID pgtype.UUID `json:"booking_id"`
	Limit     int32       `json:"limit"`
	Offset    int32       `json:"offset"`
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPayments, arg.OrderID, arg.BookingID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
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

const sumPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0)::numeric(12,2) FROM payments WHERE order_id = $1`

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPaymentsByOrder, orderID)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

const sumPaymentsByBooking = `
SELECT COALESCE(SUM(amount), 0)::numeric(12,2) FROM payments WHERE booking_id = $1`

func (q *Queries) SumPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumPaymentsByBooking, bookingID)
	var total pgtype.Numeric
	err := row.Scan(&total)
	return total, err
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const leaveColumns = `id, staff_id, leave_type, start_date, end_date, reason, status, reviewed_by, reviewed_at, review_note, created_at, updated_at`

func scanLeaveRequest(row interface{ Scan(...interface{}) error }) (LeaveRequest, error) {
	var i LeaveRequest
	err := row.Scan(
		&i.ID,
		&i.StaffID,
		&i.LeaveType,
		&i.StartDate,
		&i.EndDate,
		&i.Reason,
		&i.Status,
		&i.ReviewedBy,
		&i.ReviewedAt,
		&i.ReviewNote,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createLeaveRequest = `
INSERT INTO leave_requests (staff_id, leave_type, start_date, end_date, reason)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + leaveColumns

type CreateLeaveRequestParams struct {
	StaffID   uuid.UUID   `json:"staff_id"`
	LeaveType string      `json:"leave_type"`
	StartDate pgtype.Date `json:"start_date"`
	EndDate   pgtype.Date `json:"end_date"`
	Reason    pgtype.Text `json:"reason"`
}

func (q *Queries) CreateLeaveRequest(ctx context.Context, arg CreateLeaveRequestParams) (LeaveRequest, error) {
	row := q.db.QueryRow(ctx, createLeaveRequest,
		arg.StaffID,
		arg.LeaveType,
		arg.StartDate,
		arg.EndDate,
		arg.Reason,
	)
	return scanLeaveRequest(row)
}

const getLeaveRequest = `
SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`

func (q *Queries) GetLeaveRequest(ctx context.Context, id uuid.UUID) (LeaveRequest, error) {
	return scanLeaveRequest(q.db.QueryRow(ctx, getLeaveRequest, id))
}

const listLeaveRequests = `
SELECT ` + leaveColumns + ` FROM leave_requests
WHERE ($1::uuid IS NULL OR staff_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListLeaveRequestsParams struct {
	StaffID pgtype.UUID `json:"staff_id"`
	Status  pgtype.Text `json:"status"`
	Limit   int32       `json:"limit"`
	Offset  int32       `json:"offset"`
}

func (q *Queries) ListLeaveRequests(ctx context.Context, arg ListLeaveRequestsParams) ([]LeaveRequest, error) {
	rows, err := q.db.Query(ctx, listLeaveRequests, arg.StaffID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LeaveRequest{}
	for rows.Next() {
		i, err := scanLeaveRequest(rows)
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

const reviewLeaveRequest = `
UPDATE leave_requests
SET status = $2, reviewed_by = $3, review_note = $4, reviewed_at = now(), updated_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + leaveColumns

type ReviewLeaveRequestParams struct {
	ID         uuid.UUID   `json:"id"`
	Status     string      `json:"status"`
	ReviewedBy pgtype.UUID `json:"reviewed_by"`
	ReviewNote pgtype.Text `json:"review_note"`
}

// ReviewLeaveRequest only matches pending requests.
func (q *Queries) ReviewLeaveRequest(ctx context.Context, arg ReviewLeaveRequestParams) (LeaveRequest, error) {
	row := q.db.QueryRow(ctx, reviewLeaveRequest, arg.ID, arg.Status, arg.ReviewedBy, arg.ReviewNote)
	return scanLeaveRequest(row)
}

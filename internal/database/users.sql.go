package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, full_name, email, hashed_password, role, phone, department_id, position, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.Phone,
		&i.DepartmentID,
		&i.Position,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `
INSERT INTO users (full_name, email, hashed_password, role, phone, department_id, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

type CreateUserParams struct {
	FullName       string      `json:"full_name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	Phone          pgtype.Text `json:"phone"`
	DepartmentID   pgtype.UUID `json:"department_id"`
	Position       pgtype.Text `json:"position"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.FullName,
		arg.Email,
		arg.HashedPassword,
		arg.Role,
		arg.Phone,
		arg.DepartmentID,
		arg.Position,
	)
	return scanUser(row)
}

const getUserByEmail = `
SELECT ` + userColumns + ` FROM users
WHERE lower(email) = lower($1) AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `
SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listStaff = `
SELECT ` + userColumns + ` FROM users
WHERE role <> 'CUSTOMER'
  AND is_active = true
  AND ($1::text IS NULL OR role = $1)
  AND ($2::uuid IS NULL OR department_id = $2)
ORDER BY full_name
LIMIT $3 OFFSET $4`

type ListStaffParams struct {
	Role         pgtype.Text `json:"role"`
	DepartmentID pgtype.UUID `json:"department_id"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

func (q *Queries) ListStaff(ctx context.Context, arg ListStaffParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listStaff, arg.Role, arg.DepartmentID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const updateUser = `
UPDATE users
SET full_name = $2, email = $3, role = $4, phone = $5, department_id = $6, position = $7, updated_at = now()
WHERE id = $1 AND is_active = true AND role <> 'CUSTOMER'
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID           uuid.UUID   `json:"id"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	Phone        pgtype.Text `json:"phone"`
	DepartmentID pgtype.UUID `json:"department_id"`
	Position     pgtype.Text `json:"position"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.FullName,
		arg.Email,
		arg.Role,
		arg.Phone,
		arg.DepartmentID,
		arg.Position,
	)
	return scanUser(row)
}

const updateUserPassword = `
UPDATE users SET hashed_password = $2, updated_at = now()
WHERE id = $1`

type UpdateUserPasswordParams struct {
	ID             uuid.UUID `json:"id"`
	HashedPassword string    `json:"hashed_password"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.Exec(ctx, updateUserPassword, arg.ID, arg.HashedPassword)
	return err
}

const softDeleteUser = `
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true AND role <> 'CUSTOMER'
RETURNING id`

func (q *Queries) SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteUser, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

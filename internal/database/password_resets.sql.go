package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createPasswordReset = `
INSERT INTO password_resets (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, used_at, created_at`

type CreatePasswordResetParams struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (q *Queries) CreatePasswordReset(ctx context.Context, arg CreatePasswordResetParams) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, createPasswordReset, arg.UserID, arg.TokenHash, arg.ExpiresAt)
	var i PasswordReset
	err := row.Scan(&i.ID, &i.UserID, &i.TokenHash, &i.ExpiresAt, &i.UsedAt, &i.CreatedAt)
	return i, err
}

const consumePasswordReset = `
UPDATE password_resets SET used_at = now()
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
RETURNING id, user_id, token_hash, expires_at, used_at, created_at`

// ConsumePasswordReset marks a live token used and returns it. Expired,
// unknown and already used tokens match no row.
func (q *Queries) ConsumePasswordReset(ctx context.Context, tokenHash string) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, consumePasswordReset, tokenHash)
	var i PasswordReset
	err := row.Scan(&i.ID, &i.UserID, &i.TokenHash, &i.ExpiresAt, &i.UsedAt, &i.CreatedAt)
	return i, err
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository stores browser sessions. A session is only valid while
// it is unexpired and its user still exists.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create stores session and drops the user's sessions that have already
// expired, so a user who signs in often does not accumulate dead rows
// between sweeps.
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	if _, err := uuid.Parse(session.UserID); err != nil {
		return fmt.Errorf("session user id %q: %w", session.UserID, err)
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		return fmt.Errorf("session %s expires before it is created", session.ID)
	}

	query := `
		WITH pruned AS (
			DELETE FROM sessions WHERE user_id = $2 AND expires_at <= NOW()
		)
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get returns the live session with the given id, or ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT s.id, s.user_id, s.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > NOW()
	`
	var s Session
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// Delete signs out a single session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Sweep removes expired sessions across all users and reports how many
// were removed.
func (r *SessionRepository) Sweep(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

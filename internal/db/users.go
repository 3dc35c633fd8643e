package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, spotify_id, display_name, email, access_token, refresh_token, token_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.SpotifyID,
		&user.DisplayName,
		&user.Email,
		&user.AccessToken,
		&user.RefreshToken,
		&user.TokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// UpsertFromSignIn creates the user on first sign-in, or refreshes the
// profile and credential of an existing user matched by Spotify ID.
// user.ID, CreatedAt and UpdatedAt are filled in from the stored row.
func (r *UserRepository) UpsertFromSignIn(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, spotify_id, display_name, email, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (spotify_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, users.refresh_token),
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, query,
		id,
		user.SpotifyID,
		user.DisplayName,
		user.Email,
		user.AccessToken,
		user.RefreshToken,
		user.TokenExpiresAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// UpdateTokens overwrites the stored credential after a refresh.
func (r *UserRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Credential returns the stored OAuth state for a user.
func (r *UserRepository) Credential(ctx context.Context, id string) (*auth.Credential, error) {
	user, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", auth.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return user.Credential(), nil
}

// Credential converts the user to the credential view used for token refresh.
func (u *User) Credential() *auth.Credential {
	return &auth.Credential{
		UserID:            u.ID,
		ProviderAccountID: u.SpotifyID,
		AccessToken:       u.AccessToken,
		RefreshToken:      u.RefreshToken,
		ExpiresAt:         u.TokenExpiresAt,
	}
}

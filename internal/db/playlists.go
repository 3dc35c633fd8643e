package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository handles cached playlist metadata.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// UpsertBatch writes all playlists for a user as one unit.
func (r *PlaylistRepository) UpsertBatch(ctx context.Context, userID string, playlists []Playlist) error {
	if len(playlists) == 0 {
		return nil
	}

	query := `
		INSERT INTO playlists (user_id, spotify_id, name, description, image_url, track_count, is_owner, created_at, updated_at)
		SELECT $1::text, u.*, NOW(), NOW() FROM unnest($2::text[], $3::text[], $4::text[], $5::text[], $6::int[], $7::bool[]) AS u
		ON CONFLICT (user_id, spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			track_count = EXCLUDED.track_count,
			is_owner = EXCLUDED.is_owner,
			updated_at = NOW()
	`

	ids := make([]string, len(playlists))
	names := make([]string, len(playlists))
	descriptions := make([]*string, len(playlists))
	images := make([]*string, len(playlists))
	counts := make([]int, len(playlists))
	owners := make([]bool, len(playlists))

	for i, p := range playlists {
		ids[i] = p.SpotifyID
		names[i] = p.Name
		descriptions[i] = p.Description
		images[i] = p.ImageURL
		counts[i] = p.TrackCount
		owners[i] = p.IsOwner
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, userID, ids, names, descriptions, images, counts, owners); err != nil {
		return fmt.Errorf("batch upserting playlists: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const playlistColumns = `user_id, spotify_id, name, description, image_url, track_count, is_owner, created_at, updated_at`

func scanPlaylist(row pgx.Row) (Playlist, error) {
	var p Playlist
	err := row.Scan(
		&p.UserID,
		&p.SpotifyID,
		&p.Name,
		&p.Description,
		&p.ImageURL,
		&p.TrackCount,
		&p.IsOwner,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// FindForUser retrieves one of the user's playlists by Spotify ID.
func (r *PlaylistRepository) FindForUser(ctx context.Context, userID, spotifyID string) (*Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE user_id = $1 AND spotify_id = $2`
	p, err := scanPlaylist(r.pool.QueryRow(ctx, query, userID, spotifyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &p, nil
}

// ListForUser returns the user's playlists, most recently updated first.
func (r *PlaylistRepository) ListForUser(ctx context.Context, userID string) ([]Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE user_id = $1 ORDER BY updated_at DESC, name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	return playlists, nil
}

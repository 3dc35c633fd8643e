package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GenerationRepository handles generated playlist records.
type GenerationRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new generation. Tracks are stored as JSONB.
func (r *GenerationRepository) Create(ctx context.Context, g *Generation) error {
	tracks, err := json.Marshal(g.Tracks)
	if err != nil {
		return fmt.Errorf("encoding tracks: %w", err)
	}

	query := `
		INSERT INTO generations (id, user_id, name, description, source_playlist_ids, tracks, prompt, published_playlist_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	err = r.pool.QueryRow(ctx, query,
		g.ID,
		g.UserID,
		g.Name,
		g.Description,
		g.SourcePlaylistIDs,
		tracks,
		g.Prompt,
		g.PublishedPlaylistID,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}
	return nil
}

// Get retrieves a generation by ID.
func (r *GenerationRepository) Get(ctx context.Context, id uuid.UUID) (*Generation, error) {
	query := `
		SELECT id, user_id, name, description, source_playlist_ids, tracks, prompt, published_playlist_id, created_at
		FROM generations
		WHERE id = $1
	`
	var g Generation
	var tracks []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.UserID,
		&g.Name,
		&g.Description,
		&g.SourcePlaylistIDs,
		&tracks,
		&g.Prompt,
		&g.PublishedPlaylistID,
		&g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying generation: %w", err)
	}
	if err := json.Unmarshal(tracks, &g.Tracks); err != nil {
		return nil, fmt.Errorf("decoding tracks: %w", err)
	}
	return &g, nil
}

// SetPublishedPlaylistID records the Spotify playlist a generation was published to.
func (r *GenerationRepository) SetPublishedPlaylistID(ctx context.Context, id uuid.UUID, playlistID string) error {
	query := `UPDATE generations SET published_playlist_id = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, playlistID)
	if err != nil {
		return fmt.Errorf("updating published playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

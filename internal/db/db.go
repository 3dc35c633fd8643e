// Package db provides PostgreSQL persistence for the playlist curator:
// users with their Spotify credentials, sessions, cached playlists,
// generations and chat history.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row is missing or belongs to another user.
var ErrNotFound = errors.New("not found")

const (
	applicationName = "playlist-curator"
	pingTimeout     = 5 * time.Second
)

// DB owns the connection pool and the repositories that share it.
type DB struct {
	pool *pgxpool.Pool

	users       *UserRepository
	sessions    *SessionRepository
	playlists   *PlaylistRepository
	generations *GenerationRepository
	chat        *ChatRepository
}

// New connects to databaseURL and checks that the server answers.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	db := newDB(pool)
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func newDB(pool *pgxpool.Pool) *DB {
	return &DB{
		pool:        pool,
		users:       &UserRepository{pool: pool},
		sessions:    &SessionRepository{pool: pool},
		playlists:   &PlaylistRepository{pool: pool},
		generations: &GenerationRepository{pool: pool},
		chat:        &ChatRepository{pool: pool},
	}
}

// Ping reports whether the database is reachable, giving up after a few
// seconds so a health check never hangs on a dead server.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Users() *UserRepository             { return db.users }
func (db *DB) Sessions() *SessionRepository       { return db.sessions }
func (db *DB) Playlists() *PlaylistRepository     { return db.playlists }
func (db *DB) Generations() *GenerationRepository { return db.generations }
func (db *DB) ChatMessages() *ChatRepository      { return db.chat }

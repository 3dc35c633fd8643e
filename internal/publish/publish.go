// Package publish turns a stored generation into a playlist on the user's
// Spotify account.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// DefaultDescription is used for generations without a description.
const DefaultDescription = "Generated by PlaylistAI"

const playlistURLPrefix = "https://open.spotify.com/playlist/"

// Sentinel errors.
var (
	// ErrNotFound is returned when the generation does not exist or belongs
	// to another user.
	ErrNotFound = errors.New("generated playlist not found")

	// ErrAlreadyPublished is returned when the generation was published before.
	ErrAlreadyPublished = errors.New("playlist already published")
)

// GenerationStore reads generations and records their publication.
type GenerationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*db.Generation, error)
	SetPublishedPlaylistID(ctx context.Context, id uuid.UUID, playlistID string) error
}

// UserStore reads users.
type UserStore interface {
	Get(ctx context.Context, id string) (*db.User, error)
}

// PlaylistWriter creates playlists on Spotify.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, userID, ownerID, name, description string, public bool) (*spotify.Playlist, error)
	AddItems(ctx context.Context, userID, playlistID string, uris []string) error
}

// Result identifies the published playlist.
type Result struct {
	PlaylistID string `json:"playlistId"`
	URL        string `json:"playlistUrl"`
}

// Publisher publishes generations.
type Publisher struct {
	generations GenerationStore
	users       UserStore
	spotify     PlaylistWriter
	logger      *log.Logger
}

// New creates a new Publisher.
func New(generations GenerationStore, users UserStore, writer PlaylistWriter, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		generations: generations,
		users:       users,
		spotify:     writer,
		logger:      logger,
	}
}

// Publish creates a private playlist holding the generation's tracks and
// records its id on the generation. Tracks without a URI are left out.
//
// The published check and the final write are not atomic: two concurrent
// calls for the same generation can both create a playlist, and the later
// write wins.
func (p *Publisher) Publish(ctx context.Context, userID string, generationID uuid.UUID) (*Result, error) {
	g, err := p.generations.Get(ctx, generationID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading generation: %w", err)
	}
	if g.UserID != userID {
		return nil, ErrNotFound
	}
	if g.PublishedPlaylistID != nil {
		return nil, ErrAlreadyPublished
	}

	user, err := p.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	description := g.Description
	if description == "" {
		description = DefaultDescription
	}

	playlist, err := p.spotify.CreatePlaylist(ctx, userID, user.SpotifyID, g.Name, description, false)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(g.Tracks))
	for _, t := range g.Tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	if len(uris) > 0 {
		if err := p.spotify.AddItems(ctx, userID, playlist.ID, uris); err != nil {
			return nil, err
		}
	}

	if err := p.generations.SetPublishedPlaylistID(ctx, g.ID, playlist.ID); err != nil {
		return nil, fmt.Errorf("recording published playlist: %w", err)
	}

	url := playlist.ExternalURLs.Spotify
	if url == "" {
		url = playlistURLPrefix + playlist.ID
	}

	p.logger.Info("published playlist", "generation", g.ID, "playlist", playlist.ID, "tracks", len(uris))
	return &Result{PlaylistID: playlist.ID, URL: url}, nil
}

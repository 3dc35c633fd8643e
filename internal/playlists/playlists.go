// Package playlists keeps the local cache of a user's Spotify playlists.
package playlists

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// SpotifyReader reads the current user's profile and playlists.
type SpotifyReader interface {
	CurrentUser(ctx context.Context, userID string) (*spotify.User, error)
	CurrentUserPlaylists(ctx context.Context, userID string, limit int) ([]spotify.Playlist, error)
}

// Store persists cached playlist metadata.
type Store interface {
	UpsertBatch(ctx context.Context, userID string, playlists []db.Playlist) error
	ListForUser(ctx context.Context, userID string) ([]db.Playlist, error)
}

// TrackReader loads a playlist's tracks with audio features attached.
type TrackReader interface {
	Tracks(ctx context.Context, userID, playlistID string) ([]spotify.Track, error)
}

// Image is a playlist cover.
type Image struct {
	URL string `json:"url"`
}

// Playlist is a cached playlist in Spotify's simplified playlist shape.
type Playlist struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description *string            `json:"description"`
	Images      []Image            `json:"images"`
	Tracks      spotify.TrackCount `json:"tracks"`
}

// Service refreshes and reads the playlist cache.
type Service struct {
	spotify SpotifyReader
	store   Store
	tracks  TrackReader
	logger  *log.Logger
}

// New creates a new playlist service.
func New(reader SpotifyReader, store Store, tracks TrackReader, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		spotify: reader,
		store:   store,
		tracks:  tracks,
		logger:  logger,
	}
}

// Refresh pulls the user's playlists from Spotify, stores them in a single
// batch and returns every cached playlist, most recently updated first.
// Ownership is recorded as false when the profile cannot be read.
func (s *Service) Refresh(ctx context.Context, userID string) ([]Playlist, error) {
	remote, err := s.spotify.CurrentUserPlaylists(ctx, userID, spotify.MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("fetching playlists: %w", err)
	}

	var accountID string
	if profile, err := s.spotify.CurrentUser(ctx, userID); err != nil {
		s.logger.Warn("could not read profile, marking playlists as not owned", "user", userID, "err", err)
	} else {
		accountID = profile.ID
	}

	if err := s.store.UpsertBatch(ctx, userID, toDBPlaylists(remote, accountID)); err != nil {
		return nil, fmt.Errorf("storing playlists: %w", err)
	}

	stored, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}

	out := make([]Playlist, len(stored))
	for i, p := range stored {
		out[i] = fromDBPlaylist(p)
	}
	return out, nil
}

// Tracks returns the tracks of one playlist with audio features attached.
func (s *Service) Tracks(ctx context.Context, userID, playlistID string) ([]spotify.Track, error) {
	tracks, err := s.tracks.Tracks(ctx, userID, playlistID)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist tracks: %w", err)
	}
	return tracks, nil
}

// toDBPlaylists converts Spotify playlists to cache rows. Spotify can list
// a playlist twice, and a batch may hold each key only once, so later
// duplicates are dropped.
func toDBPlaylists(remote []spotify.Playlist, accountID string) []db.Playlist {
	seen := make(map[string]bool, len(remote))
	out := make([]db.Playlist, 0, len(remote))
	for _, p := range remote {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		row := db.Playlist{
			SpotifyID:  p.ID,
			Name:       p.Name,
			TrackCount: p.Tracks.Total,
			IsOwner:    accountID != "" && p.Owner.ID == accountID,
		}
		if p.Description != "" {
			desc := p.Description
			row.Description = &desc
		}
		if len(p.Images) > 0 && p.Images[0].URL != "" {
			img := p.Images[0].URL
			row.ImageURL = &img
		}
		out = append(out, row)
	}
	return out
}

func fromDBPlaylist(p db.Playlist) Playlist {
	out := Playlist{
		ID:          p.SpotifyID,
		Name:        p.Name,
		Description: p.Description,
		Images:      []Image{},
		Tracks:      spotify.TrackCount{Total: p.TrackCount},
	}
	if p.ImageURL != nil {
		out.Images = append(out.Images, Image{URL: *p.ImageURL})
	}
	return out
}

// Package catalog assembles the track catalog a playlist generation works
// from: the tracks of each selected playlist enriched with audio features.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

const (
	// PageSize is the number of items fetched per playlist.
	PageSize = 50

	// maxFeatureIDs bounds the single audio-features request per playlist.
	maxFeatureIDs = 50

	// DefaultConcurrency is the number of playlists fetched in parallel.
	DefaultConcurrency = 4
)

// ErrNoValidPlaylists is returned when none of the requested playlists
// could be loaded.
var ErrNoValidPlaylists = errors.New("no valid playlists found")

// SourcePlaylist is one selected playlist with its enriched tracks.
type SourcePlaylist struct {
	ID     string
	Name   string
	Tracks []spotify.Track
}

// PlaylistLookup finds a user's cached playlist by Spotify ID.
type PlaylistLookup interface {
	FindForUser(ctx context.Context, userID, spotifyID string) (*db.Playlist, error)
}

// TrackSource reads playlist items and audio features from Spotify.
type TrackSource interface {
	PlaylistItems(ctx context.Context, userID, playlistID string, limit int) ([]spotify.PlaylistItem, error)
	AudioFeatures(ctx context.Context, userID string, ids []string) ([]*spotify.AudioFeatures, error)
}

// Aggregator builds catalogs.
type Aggregator struct {
	playlists   PlaylistLookup
	source      TrackSource
	concurrency int
	logger      *log.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency sets how many playlists are fetched at once.
// 1 fetches them one after another.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(playlists PlaylistLookup, source TrackSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		playlists:   playlists,
		source:      source,
		concurrency: DefaultConcurrency,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build loads the requested playlists in input order. Playlists the user
// does not have cached, and playlists whose items cannot be fetched, are
// skipped. An empty result is reported as ErrNoValidPlaylists. Token
// failures are returned as is, since no later call could succeed either.
func (a *Aggregator) Build(ctx context.Context, userID string, playlistIDs []string) ([]SourcePlaylist, error) {
	results, err := a.fetchAll(ctx, userID, playlistIDs)
	if err != nil {
		return nil, err
	}

	var out []SourcePlaylist
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.playlist != nil {
			out = append(out, *r.playlist)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoValidPlaylists
	}
	return out, nil
}

// load fetches and enriches one playlist. A nil playlist with a nil error
// means the playlist is skipped.
func (a *Aggregator) load(ctx context.Context, userID, playlistID string) (*SourcePlaylist, error) {
	stored, err := a.playlists.FindForUser(ctx, userID, playlistID)
	if errors.Is(err, db.ErrNotFound) {
		a.logger.Debug("skipping playlist not owned by user", "playlist", playlistID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up playlist %s: %w", playlistID, err)
	}

	tracks, err := a.Tracks(ctx, userID, playlistID)
	if err != nil {
		if blocksUser(err) {
			return nil, err
		}
		a.logger.Warn("skipping playlist, track fetch failed", "playlist", playlistID, "err", err)
		return nil, nil
	}

	return &SourcePlaylist{
		ID:     playlistID,
		Name:   stored.Name,
		Tracks: tracks,
	}, nil
}

// Tracks returns the playable tracks on the first page of a playlist with
// audio features attached. A failed features request leaves the features
// nil rather than failing the call, unless the user's token is unusable.
func (a *Aggregator) Tracks(ctx context.Context, userID, playlistID string) ([]spotify.Track, error) {
	items, err := a.source.PlaylistItems(ctx, userID, playlistID, PageSize)
	if err != nil {
		return nil, err
	}

	tracks := playableTracks(items)

	ids := make([]string, 0, min(len(tracks), maxFeatureIDs))
	for _, t := range tracks[:min(len(tracks), maxFeatureIDs)] {
		ids = append(ids, t.ID)
	}

	var features []*spotify.AudioFeatures
	if len(ids) > 0 {
		features, err = a.source.AudioFeatures(ctx, userID, ids)
		if blocksUser(err) {
			return nil, err
		}
		if err != nil {
			a.logger.Warn("continuing without audio features", "playlist", playlistID, "err", err)
			features = nil
		}
	}

	return attachFeatures(pairByPosition(tracks, features)), nil
}

// blocksUser reports whether err stops every further Spotify call for the
// user, so it must fail the request instead of skipping one playlist.
func blocksUser(err error) bool {
	return errors.Is(err, auth.ErrNoRefreshToken) ||
		errors.Is(err, auth.ErrRefreshFailed) ||
		errors.Is(err, auth.ErrUserNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// playableTracks keeps only music tracks, dropping episodes and empty slots.
func playableTracks(items []spotify.PlaylistItem) []spotify.Track {
	tracks := make([]spotify.Track, 0, len(items))
	for _, item := range items {
		if item.IsTrack() {
			tracks = append(tracks, *item.Track)
		}
	}
	return tracks
}

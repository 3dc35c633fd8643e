// Package spotify wraps the Spotify Web API for the curator. Every call is
// made on behalf of a user through an authenticated fetcher, so token
// refresh and the retry after a 401 happen below the API client.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
)

const (
	// MaxPageSize is the largest page Spotify returns for playlist endpoints.
	MaxPageSize = 50

	maxTracksPerRequest   = 100
	maxFeaturesPerRequest = 100
)

// ErrUpstream is wrapped by every non-2xx response from Spotify.
var ErrUpstream = errors.New("spotify request failed")

// APIError is a non-2xx response from Spotify.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return ErrUpstream
}

// Fetcher issues authenticated requests for a user.
type Fetcher interface {
	Fetch(ctx context.Context, userID, url string, init *auth.RequestInit) (*http.Response, error)
}

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	fetcher Fetcher
	opts    []spotify.ClientOption
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.opts = append(c.opts, spotify.WithBaseURL(strings.TrimRight(u, "/")+"/"))
		}
	}
}

// New creates a Client that sends every request through fetcher.
func New(fetcher Fetcher, opts ...Option) *Client {
	c := &Client{fetcher: fetcher}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// api returns an API client acting as userID.
func (c *Client) api(userID string) *spotify.Client {
	httpClient := &http.Client{Transport: &userTransport{fetcher: c.fetcher, userID: userID}}
	return spotify.New(httpClient, c.opts...)
}

// CurrentUser returns the profile of the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := c.api(userID).CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", wrapError(err))
	}
	return convertUser(user), nil
}

// CurrentUserPlaylists returns the first page of the user's playlists.
func (c *Client) CurrentUserPlaylists(ctx context.Context, userID string, limit int) ([]Playlist, error) {
	page, err := c.api(userID).CurrentUsersPlaylists(ctx, spotify.Limit(clampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", wrapError(err))
	}

	playlists := make([]Playlist, len(page.Playlists))
	for i, p := range page.Playlists {
		playlists[i] = convertPlaylist(p)
	}
	return playlists, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// wrapError turns a Spotify error response into an *APIError. Transport
// and token failures arrive wrapped in *url.Error by the HTTP client and are
// returned unchanged, so callers can still match the auth sentinels.
func wrapError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return err
	}

	apiErr := &APIError{Body: err.Error()}
	var spotifyErr spotify.Error
	var spotifyErrPtr *spotify.Error
	switch {
	case errors.As(err, &spotifyErr):
		apiErr.Status, apiErr.Body = spotifyErr.Status, spotifyErr.Message
	case errors.As(err, &spotifyErrPtr):
		apiErr.Status, apiErr.Body = spotifyErrPtr.Status, spotifyErrPtr.Message
	}
	return apiErr
}

package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
)

const trackURIPrefix = "spotify:track:"

// PlaylistItems returns the first page of a playlist's items, including
// entries that are not playable tracks.
func (c *Client) PlaylistItems(ctx context.Context, userID, playlistID string, limit int) ([]PlaylistItem, error) {
	page, err := c.api(userID).GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(clampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("fetching playlist %s items: %w", playlistID, wrapError(err))
	}

	items := make([]PlaylistItem, len(page.Items))
	for i, item := range page.Items {
		items[i] = convertPlaylistItem(item)
	}
	return items, nil
}

// CreatePlaylist creates a playlist owned by ownerID.
func (c *Client) CreatePlaylist(ctx context.Context, userID, ownerID, name, description string, public bool) (*Playlist, error) {
	created, err := c.api(userID).CreatePlaylistForUser(ctx, ownerID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("creating playlist: %w", wrapError(err))
	}

	playlist := convertPlaylist(created.SimplePlaylist)
	return &playlist, nil
}

// AddItems appends track URIs to a playlist. URIs that do not name a track
// are left out.
// Spotify allows max 100 tracks per request, so larger sets are batched.
func (c *Client) AddItems(ctx context.Context, userID, playlistID string, uris []string) error {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		if id, ok := strings.CutPrefix(uri, trackURIPrefix); ok && id != "" {
			ids = append(ids, spotify.ID(id))
		}
	}

	api := c.api(userID)
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))

		if _, err := api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[i:end]...); err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, wrapError(err))
		}
	}
	return nil
}

package spotify

import "strings"

// Image is a cover image reference.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height,omitempty"`
	Width  *int   `json:"width,omitempty"`
}

// Artist is a simplified artist as embedded in track objects.
type Artist struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Album is a simplified album as embedded in track objects.
type Album struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// ExternalURLs holds the public web links of an object.
type ExternalURLs struct {
	Spotify string `json:"spotify,omitempty"`
}

// AudioFeatures is the numeric feature vector Spotify reports for a track.
// Values are passed through unmodified.
type AudioFeatures struct {
	ID               string  `json:"id,omitempty"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMs       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

// Track is a playable track. AudioFeatures is attached after the fact and is
// nil when Spotify had no features for it.
type Track struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Artists       []Artist       `json:"artists"`
	Album         Album          `json:"album"`
	DurationMs    int            `json:"duration_ms"`
	URI           string         `json:"uri"`
	Type          string         `json:"type,omitempty"`
	ExternalURLs  ExternalURLs   `json:"external_urls,omitempty"`
	AudioFeatures *AudioFeatures `json:"audio_features"`
}

// ArtistNames returns the track's artist names joined with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// PlaylistItem is one entry of a playlist. Track is nil for removed or
// unavailable items and may describe an episode rather than a track.
type PlaylistItem struct {
	AddedAt string `json:"added_at,omitempty"`
	Track   *Track `json:"track"`
}

// IsTrack reports whether the item is a playable music track.
func (i PlaylistItem) IsTrack() bool {
	return i.Track != nil && i.Track.Type == "track" && i.Track.ID != ""
}

// Owner identifies the user that owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// TrackCount is the tracks reference embedded in playlist objects.
type TrackCount struct {
	Total int `json:"total"`
}

// Playlist is a simplified playlist.
type Playlist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       *bool        `json:"public,omitempty"`
	Images       []Image      `json:"images"`
	Owner        Owner        `json:"owner"`
	Tracks       TrackCount   `json:"tracks"`
	ExternalURLs ExternalURLs `json:"external_urls,omitempty"`
	URI          string       `json:"uri,omitempty"`
}

// User is the current user's profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

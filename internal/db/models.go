package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// User is a signed-in user together with their Spotify credential.
type User struct {
	ID             string
	SpotifyID      string // provider account id
	DisplayName    string
	Email          string
	AccessToken    *string    // nullable
	RefreshToken   *string    // nullable
	TokenExpiresAt *time.Time // nullable
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Playlist is cached metadata for one of a user's Spotify playlists.
// It is keyed by (UserID, SpotifyID).
type Playlist struct {
	UserID      string
	SpotifyID   string
	Name        string
	Description *string // nullable
	ImageURL    *string // nullable
	TrackCount  int
	IsOwner     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Generation is a playlist produced by the generation engine.
type Generation struct {
	ID                  uuid.UUID
	UserID              string
	Name                string
	Description         string
	SourcePlaylistIDs   []string
	Tracks              []spotify.Track
	Prompt              *string // nullable
	PublishedPlaylistID *string // nullable - set once the playlist is published
	CreatedAt           time.Time
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a user's assistant conversation.
type ChatMessage struct {
	ID           uuid.UUID
	UserID       string
	Role         string
	Content      string
	GenerationID *uuid.UUID // nullable
	CreatedAt    time.Time
}

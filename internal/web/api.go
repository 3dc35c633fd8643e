package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/justestif/go-spotify-playlist-curator/internal/chat"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/generate"
	"github.com/justestif/go-spotify-playlist-curator/internal/playlists"
	"github.com/justestif/go-spotify-playlist-curator/internal/publish"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// UserReader reads users.
type UserReader interface {
	Get(ctx context.Context, id string) (*db.User, error)
}

// PlaylistService refreshes and reads a user's playlists.
type PlaylistService interface {
	Refresh(ctx context.Context, userID string) ([]playlists.Playlist, error)
	Tracks(ctx context.Context, userID, playlistID string) ([]spotify.Track, error)
}

// Generator runs playlist generations.
type Generator interface {
	Generate(ctx context.Context, userID string, req generate.Request) (*generate.Outcome, error)
}

// Publisher publishes generations to Spotify.
type Publisher interface {
	Publish(ctx context.Context, userID string, generationID uuid.UUID) (*publish.Result, error)
}

// ChatService runs the assistant conversation.
type ChatService interface {
	History(ctx context.Context, userID string) ([]db.ChatMessage, error)
	Send(ctx context.Context, userID, message string, cc chat.Context) (*db.ChatMessage, error)
	Reset(ctx context.Context, userID string) error
}

// API contains the JSON API handlers. Every handler expects requireSession
// to have run.
type API struct {
	users     UserReader
	playlists PlaylistService
	generator Generator
	publisher Publisher
	chat      ChatService
	logger    *log.Logger
}

type ctxKey struct{}

// requireSession rejects requests without a valid session and stores the
// session's user ID in the request context.
func requireSession(sessions SessionManager, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessions.GetFromRequest(r)
			if session == nil {
				writeError(w, r, logger, ErrUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	SpotifyID   string    `json:"spotifyId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User returns the signed-in user (GET /api/user).
func (a *API) User(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, a.logger, fmt.Errorf("loading user: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SpotifyID:   user.SpotifyID,
		CreatedAt:   user.CreatedAt,
	})
}

// Playlists refreshes and lists the user's playlists (GET /api/playlists).
func (a *API) Playlists(w http.ResponseWriter, r *http.Request) {
	list, err := a.playlists.Refresh(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type tracksResponse struct {
	Items []spotify.PlaylistItem `json:"items"`
	Total int                    `json:"total"`
}

// PlaylistTracks lists one playlist's tracks with audio features
// (GET /api/playlists/{id}/tracks).
func (a *API) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.playlists.Tracks(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	items := make([]spotify.PlaylistItem, len(tracks))
	for i := range tracks {
		items[i] = spotify.PlaylistItem{Track: &tracks[i]}
	}
	writeJSON(w, http.StatusOK, tracksResponse{Items: items, Total: len(items)})
}

type generateRequest struct {
	SelectedPlaylistIDs []string `json:"selectedPlaylistIds"`
	Prompt              string   `json:"prompt"`
}

type generationResponse struct {
	ID                  uuid.UUID          `json:"id"`
	UserID              string             `json:"userId"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	SourcePlaylistIDs   []string           `json:"sourcePlaylistIds"`
	Tracks              []spotify.Track    `json:"tracks"`
	Prompt              *string            `json:"aiPrompt"`
	PublishedPlaylistID *string            `json:"publishedPlaylistId"`
	CreatedAt           time.Time          `json:"createdAt"`
	Analysis            *generate.Analysis `json:"analysis"`
}

// GeneratePlaylist runs a generation (POST /api/generate-playlist).
func (a *API) GeneratePlaylist(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	out, err := a.generator.Generate(r.Context(), userID(r), generate.Request{
		PlaylistIDs: req.SelectedPlaylistIDs,
		Prompt:      req.Prompt,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	g := out.Generation
	tracks := g.Tracks
	if tracks == nil {
		tracks = []spotify.Track{}
	}
	writeJSON(w, http.StatusOK, generationResponse{
		ID:                  g.ID,
		UserID:              g.UserID,
		Name:                g.Name,
		Description:         g.Description,
		SourcePlaylistIDs:   g.SourcePlaylistIDs,
		Tracks:              tracks,
		Prompt:              g.Prompt,
		PublishedPlaylistID: g.PublishedPlaylistID,
		CreatedAt:           g.CreatedAt,
		Analysis:            out.Analysis,
	})
}

// PublishGeneration publishes a generation to Spotify
// (POST /api/generated/{id}/publish).
func (a *API) PublishGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, a.logger, fmt.Errorf("%w: invalid generation id", ErrBadRequest))
		return
	}

	res, err := a.publisher.Publish(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type chatMessageResponse struct {
	ID           uuid.UUID  `json:"id"`
	Role         string     `json:"role"`
	Content      string     `json:"content"`
	GenerationID *uuid.UUID `json:"playlistGenerationId"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toChatMessage(m db.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:           m.ID,
		Role:         m.Role,
		Content:      m.Content,
		GenerationID: m.GenerationID,
		CreatedAt:    m.CreatedAt,
	}
}

// ChatHistory lists the conversation (GET /api/chat).
func (a *API) ChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.chat.History(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	messages := make([]chatMessageResponse, len(history))
	for i, m := range history {
		messages[i] = toChatMessage(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type chatRequest struct {
	Message string `json:"message"`
	Context struct {
		GenerationID      string   `json:"generationId"`
		SelectedPlaylists []string `json:"selectedPlaylists"`
	} `json:"context"`
}

// SendChat sends a message to the assistant (POST /api/chat).
func (a *API) SendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	cc := chat.Context{SelectedPlaylists: req.Context.SelectedPlaylists}
	if s := strings.TrimSpace(req.Context.GenerationID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, r, a.logger, fmt.Errorf("%w: invalid generation id", ErrBadRequest))
			return
		}
		cc.GenerationID = &id
	}

	reply, err := a.chat.Send(r.Context(), userID(r), req.Message, cc)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  toChatMessage(*reply),
		"response": reply.Content,
	})
}

// ResetChat deletes the conversation (DELETE /api/chat).
func (a *API) ResetChat(w http.ResponseWriter, r *http.Request) {
	if err := a.chat.Reset(r.Context(), userID(r)); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

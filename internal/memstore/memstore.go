// Package memstore is an in-memory implementation of the curator's
// repositories. It backs the server when no database is configured and is
// used by tests.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
)

// Store holds all collections behind one lock.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*db.User
	bySpotifyID map[string]string
	sessions    map[string]db.Session
	playlists   map[string]map[string]db.Playlist
	generations map[uuid.UUID]*db.Generation
	messages    map[string][]db.ChatMessage
	now         func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[string]*db.User),
		bySpotifyID: make(map[string]string),
		sessions:    make(map[string]db.Session),
		playlists:   make(map[string]map[string]db.Playlist),
		generations: make(map[uuid.UUID]*db.Generation),
		messages:    make(map[string][]db.ChatMessage),
		now:         time.Now,
	}
}

// Users returns the user repository.
func (s *Store) Users() *Users { return &Users{s} }

// Sessions returns the session repository.
func (s *Store) Sessions() *Sessions { return &Sessions{s} }

// Playlists returns the playlist repository.
func (s *Store) Playlists() *Playlists { return &Playlists{s} }

// Generations returns the generation repository.
func (s *Store) Generations() *Generations { return &Generations{s} }

// ChatMessages returns the chat repository.
func (s *Store) ChatMessages() *ChatMessages { return &ChatMessages{s} }

// ============================================================================
// Users
// ============================================================================

// Users stores users and their credentials.
type Users struct{ s *Store }

// Get retrieves a user by ID.
func (r *Users) Get(_ context.Context, id string) (*db.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// UpsertFromSignIn creates or updates a user matched by Spotify ID.
func (r *Users) UpsertFromSignIn(_ context.Context, user *db.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if id, ok := r.s.bySpotifyID[user.SpotifyID]; ok {
		existing := r.s.users[id]
		existing.DisplayName = user.DisplayName
		existing.Email = user.Email
		existing.AccessToken = user.AccessToken
		if user.RefreshToken != nil {
			existing.RefreshToken = user.RefreshToken
		}
		existing.TokenExpiresAt = user.TokenExpiresAt
		existing.UpdatedAt = now
		*user = *existing
		return nil
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	r.s.users[user.ID] = &cp
	r.s.bySpotifyID[user.SpotifyID] = user.ID
	return nil
}

// UpdateTokens overwrites a user's credential.
func (r *Users) UpdateTokens(_ context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.AccessToken = &accessToken
	u.RefreshToken = &refreshToken
	u.TokenExpiresAt = &expiresAt
	u.UpdatedAt = r.s.now()
	return nil
}

// Credential returns the stored OAuth state for a user.
func (r *Users) Credential(ctx context.Context, id string) (*auth.Credential, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", auth.ErrUserNotFound, id)
	}
	return u.Credential(), nil
}

// ============================================================================
// Sessions
// ============================================================================

// Sessions stores web sessions.
type Sessions struct{ s *Store }

// Create inserts a session.
func (r *Sessions) Create(_ context.Context, session *db.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.ID] = *session
	return nil
}

// Get retrieves an unexpired session.
func (r *Sessions) Get(_ context.Context, id string) (*db.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[id]
	if !ok || !session.ExpiresAt.After(r.s.now()) {
		return nil, db.ErrNotFound
	}
	return &session, nil
}

// Delete removes a session.
func (r *Sessions) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

// ============================================================================
// Playlists
// ============================================================================

// Playlists stores cached playlist metadata.
type Playlists struct{ s *Store }

// UpsertBatch writes all playlists for a user under one lock.
func (r *Playlists) UpsertBatch(_ context.Context, userID string, playlists []db.Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byID, ok := r.s.playlists[userID]
	if !ok {
		byID = make(map[string]db.Playlist)
		r.s.playlists[userID] = byID
	}

	now := r.s.now()
	for _, p := range playlists {
		p.UserID = userID
		p.UpdatedAt = now
		if existing, ok := byID[p.SpotifyID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = now
		}
		byID[p.SpotifyID] = p
	}
	return nil
}

// FindForUser retrieves one of the user's playlists.
func (r *Playlists) FindForUser(_ context.Context, userID, spotifyID string) (*db.Playlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.playlists[userID][spotifyID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

// ListForUser returns the user's playlists, most recently updated first.
func (r *Playlists) ListForUser(_ context.Context, userID string) ([]db.Playlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []db.Playlist
	for _, p := range r.s.playlists[userID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b db.Playlist) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// ============================================================================
// Generations
// ============================================================================

// Generations stores generated playlists.
type Generations struct{ s *Store }

// Create inserts a generation.
func (r *Generations) Create(_ context.Context, g *db.Generation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.CreatedAt = r.s.now()
	cp := *g
	cp.Tracks = slices.Clone(g.Tracks)
	cp.SourcePlaylistIDs = slices.Clone(g.SourcePlaylistIDs)
	r.s.generations[g.ID] = &cp
	return nil
}

// Get retrieves a generation.
func (r *Generations) Get(_ context.Context, id uuid.UUID) (*db.Generation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.generations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *g
	cp.Tracks = slices.Clone(g.Tracks)
	cp.SourcePlaylistIDs = slices.Clone(g.SourcePlaylistIDs)
	return &cp, nil
}

// SetPublishedPlaylistID records the published playlist.
func (r *Generations) SetPublishedPlaylistID(_ context.Context, id uuid.UUID, playlistID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.generations[id]
	if !ok {
		return db.ErrNotFound
	}
	g.PublishedPlaylistID = &playlistID
	return nil
}

// ============================================================================
// Chat messages
// ============================================================================

// ChatMessages stores assistant conversations.
type ChatMessages struct{ s *Store }

// Create appends a message.
func (r *ChatMessages) Create(_ context.Context, m *db.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.now()
	r.s.messages[m.UserID] = append(r.s.messages[m.UserID], *m)
	return nil
}

// ListRecent returns the user's latest limit messages in ascending order.
func (r *ChatMessages) ListRecent(_ context.Context, userID string, limit int) ([]db.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.s.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// DeleteForUser removes all of a user's messages.
func (r *ChatMessages) DeleteForUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.messages, userID)
	return nil
}

package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-playlist-curator/internal/db"
)

const oauthStateCookie = "oauth_state"

// OAuth is the Spotify authorization code flow. It is implemented by
// *spotifyauth.Authenticator.
type OAuth interface {
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	Client(ctx context.Context, token *oauth2.Token) *http.Client
}

// SignInStore records the credential obtained at sign-in.
type SignInStore interface {
	UpsertFromSignIn(ctx context.Context, user *db.User) error
}

// Handlers contains the sign-in handlers.
type Handlers struct {
	auth     OAuth
	users    SignInStore
	sessions SessionManager
	logger   *log.Logger

	// spotifyOpts configures the profile client used during the callback.
	spotifyOpts []spotify.ClientOption
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(auth OAuth, users SignInStore, sessions SessionManager, logger *log.Logger) *Handlers {
	return &Handlers{
		auth:     auth,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Home reports whether the caller is signed in (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"service":       "playlist-curator",
		"authenticated": session != nil,
	})
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("generating state: %w", err))
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback). It
// stores the granted credential on the user record and starts a session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Verify state
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: missing state cookie", ErrBadRequest))
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		writeError(w, r, h.logger, fmt.Errorf("%w: state mismatch", ErrBadRequest))
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	// Check for error from Spotify
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: spotify auth error: %s", ErrBadRequest, errMsg))
		return
	}

	// Exchange code for token
	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("exchanging code: %w", err))
		return
	}

	// Get user info from Spotify
	client := spotify.New(h.auth.Client(r.Context(), token), h.spotifyOpts...)
	profile, err := client.CurrentUser(r.Context())
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("fetching profile: %w", err))
		return
	}

	user := &db.User{
		SpotifyID:   profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
	}
	if token.AccessToken != "" {
		user.AccessToken = &token.AccessToken
	}
	if token.RefreshToken != "" {
		user.RefreshToken = &token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		user.TokenExpiresAt = &expiry
	}
	if err := h.users.UpsertFromSignIn(r.Context(), user); err != nil {
		writeError(w, r, h.logger, fmt.Errorf("saving user: %w", err))
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("creating session: %w", err))
		return
	}
	h.sessions.SetCookie(w, session)

	h.logger.Info("user signed in", "user", user.ID, "spotify_id", user.SpotifyID)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package auth keeps per-user Spotify access tokens valid and issues
// authenticated requests on their behalf.
//
// There is no mutual exclusion around a user's credential. Two concurrent
// requests that both observe an expired token each redeem the refresh token
// independently. Spotify accepts both redemptions and issues two valid access
// tokens, but the last write to the credential store wins, so one of the two
// tokens is orphaned client-side while still being valid server-side. This is
// an accepted race.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultTokenURL is Spotify's token endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"

	// expiryMargin is how long before the reported expiry a token is treated as stale.
	expiryMargin = 60 * time.Second

	// defaultTokenLifetime is used when the provider omits expires_in.
	defaultTokenLifetime = time.Hour
)

var (
	// ErrUserNotFound is returned when no credential exists for the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoRefreshToken is returned when the stored credential has no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshFailed is returned when the token endpoint rejects the refresh.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Credential is the stored OAuth state for one user.
type Credential struct {
	UserID            string
	ProviderAccountID string
	AccessToken       *string
	RefreshToken      *string
	ExpiresAt         *time.Time
}

// CredentialStore reads and writes credentials.
// Credential must return an error wrapping ErrUserNotFound for unknown users.
type CredentialStore interface {
	Credential(ctx context.Context, userID string) (*Credential, error)
	UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error
}

// Refresher returns currently-valid access tokens, refreshing them through
// the provider's token endpoint when needed.
type Refresher struct {
	store        CredentialStore
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time
	logger       *log.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) RefresherOption {
	return func(r *Refresher) {
		if u != "" {
			r.tokenURL = u
		}
	}
}

// WithTokenHTTPClient sets the HTTP client used for the token endpoint.
func WithTokenHTTPClient(c *http.Client) RefresherOption {
	return func(r *Refresher) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRefresherLogger sets the logger.
func WithRefresherLogger(l *log.Logger) RefresherOption {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRefresher creates a Refresher for the given client credentials.
func NewRefresher(store CredentialStore, clientID, clientSecret string, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:        store,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     DefaultTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidAccessToken returns the user's access token, refreshing it first if it
// is absent or expires within the next 60 seconds.
func (r *Refresher) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	cred, err := r.store.Credential(ctx, userID)
	if err != nil {
		return "", err
	}

	if !r.needsRefresh(cred) {
		return *cred.AccessToken, nil
	}
	return r.refresh(ctx, cred)
}

// Refresh redeems the user's refresh token unconditionally.
func (r *Refresher) Refresh(ctx context.Context, userID string) (string, error) {
	cred, err := r.store.Credential(ctx, userID)
	if err != nil {
		return "", err
	}
	return r.refresh(ctx, cred)
}

// needsRefresh reports whether the stored access token cannot be used as is.
// A missing expiry is treated as expired.
func (r *Refresher) needsRefresh(cred *Credential) bool {
	if cred.AccessToken == nil || *cred.AccessToken == "" || cred.ExpiresAt == nil {
		return true
	}
	return !r.now().Before(cred.ExpiresAt.Add(-expiryMargin))
}

func (r *Refresher) refresh(ctx context.Context, cred *Credential) (string, error) {
	if cred.RefreshToken == nil || *cred.RefreshToken == "" {
		return "", fmt.Errorf("%w: user %s", ErrNoRefreshToken, cred.UserID)
	}

	conf := &oauth2.Config{
		ClientID:     r.clientID,
		ClientSecret: r.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: *cred.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", fmt.Errorf("%w: status %d: %s", ErrRefreshFailed, retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	// Spotify does not always rotate the refresh token.
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = *cred.RefreshToken
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = r.now().Add(defaultTokenLifetime)
	}

	if err := r.store.UpdateTokens(ctx, cred.UserID, token.AccessToken, refreshToken, expiresAt); err != nil {
		return "", fmt.Errorf("persisting refreshed token: %w", err)
	}

	r.logger.Debug("refreshed access token", "user", cred.UserID, "expires_at", expiresAt)
	return token.AccessToken, nil
}

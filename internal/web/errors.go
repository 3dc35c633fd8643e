package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/chat"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/generate"
	"github.com/justestif/go-spotify-playlist-curator/internal/llm"
	"github.com/justestif/go-spotify-playlist-curator/internal/publish"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// Request errors raised by the handlers themselves.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("invalid request")
)

// errorResponse is the JSON body of every failed API request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, generate.ErrNoPlaylistsSelected),
		errors.Is(err, catalog.ErrNoValidPlaylists),
		errors.Is(err, publish.ErrAlreadyPublished),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, publish.ErrNotFound),
		errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrNoRefreshToken),
		errors.Is(err, auth.ErrRefreshFailed),
		errors.Is(err, spotify.ErrUpstream),
		errors.Is(err, llm.ErrRequestFailed),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, generate.ErrInvalidModelOutput),
		errors.As(err, &urlErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the user-facing summary for a status.
func errorMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusBadGateway:
		return "Upstream request failed"
	case http.StatusInternalServerError:
		return "Internal server error"
	default:
		return err.Error()
	}
}

// writeError writes err as a JSON error body. Server-side failures are
// logged with the request path.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: errorMessage(status, err)}
	if status >= http.StatusInternalServerError {
		resp.Details = err.Error()
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, resp)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

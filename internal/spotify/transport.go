package spotify

import (
	"fmt"
	"io"
	"net/http"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
)

// userTransport sends the API client's requests through the fetcher as one
// user. The fetcher sets the Authorization header and handles a 401.
type userTransport struct {
	fetcher Fetcher
	userID  string
}

func (t *userTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	init := &auth.RequestInit{
		Method: req.Method,
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		init.Body = body
	}
	return t.fetcher.Fetch(req.Context(), t.userID, req.URL.String(), init)
}

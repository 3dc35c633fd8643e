package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
)

// staticTokens always hands out the same token.
type staticTokens struct{}

func (staticTokens) ValidAccessToken(context.Context, string) (string, error) { return "tok", nil }
func (staticTokens) Refresh(context.Context, string) (string, error)          { return "tok", nil }

// deadTokens fails every token lookup as if the refresh token were missing.
type deadTokens struct{}

func (deadTokens) ValidAccessToken(context.Context, string) (string, error) {
	return "", auth.ErrNoRefreshToken
}
func (deadTokens) Refresh(context.Context, string) (string, error) { return "", auth.ErrNoRefreshToken }

// request is what the fake API saw.
type request struct {
	method string
	path   string
	query  string
	body   string
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func() []request) {
	t.Helper()
	var mu sync.Mutex
	var seen []request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, request{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		mu.Unlock()
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	fetcher := auth.NewFetcher(staticTokens{}, auth.WithHTTPClient(srv.Client()))
	requests := func() []request {
		mu.Lock()
		defer mu.Unlock()
		return append([]request(nil), seen...)
	}
	return New(fetcher, WithBaseURL(srv.URL+"/v1/")), requests
}

func TestCurrentUserPlaylists(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantQuery string
	}{
		{"default limit", 0, "limit=50"},
		{"explicit limit", 20, "limit=20"},
		{"clamped limit", 500, "limit=50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"items":[{"id":"p1","name":"Road","description":"","images":[{"url":"http://img"}],"owner":{"id":"me"},"tracks":{"total":12}}],"total":1}`)
			})

			playlists, err := client.CurrentUserPlaylists(context.Background(), "u1", tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(playlists) != 1 || playlists[0].ID != "p1" || playlists[0].Tracks.Total != 12 {
				t.Errorf("playlists = %+v", playlists)
			}
			if seen()[0].path != "/v1/me/playlists" {
				t.Errorf("path = %q, want /v1/me/playlists", seen()[0].path)
			}
			if !strings.Contains(seen()[0].query, tt.wantQuery) {
				t.Errorf("query = %q, want %q", seen()[0].query, tt.wantQuery)
			}
		})
	}
}

func TestPlaylistItems_DecodesTracksAndEpisodes(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[
			{"track":{"id":"t1","name":"One","type":"track","uri":"spotify:track:t1","artists":[{"name":"A"},{"name":"B"}],"album":{"name":"Alb"}}},
			{"track":{"id":"e1","name":"Pod","type":"episode","uri":"spotify:episode:e1"}},
			{"track":{"id":null,"name":"Local","type":"track","is_local":true,"uri":"spotify:local:x"}}
		]}`)
	})

	items, err := client.PlaylistItems(context.Background(), "u1", "pl1", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	wantTrack := []bool{true, false, false}
	for i, want := range wantTrack {
		if got := items[i].IsTrack(); got != want {
			t.Errorf("items[%d].IsTrack() = %v, want %v", i, got, want)
		}
	}
	if got := items[0].Track.ArtistNames(); got != "A, B" {
		t.Errorf("ArtistNames() = %q, want %q", got, "A, B")
	}
	if items[0].Track.URI != "spotify:track:t1" || items[0].Track.Album.Name != "Alb" {
		t.Errorf("items[0] = %+v", items[0].Track)
	}
	if seen()[0].path != "/v1/playlists/pl1/tracks" {
		t.Errorf("path = %q", seen()[0].path)
	}
	if !strings.Contains(seen()[0].query, "limit=50") {
		t.Errorf("query = %q, want limit=50", seen()[0].query)
	}
}

func TestAudioFeatures_Positional(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"audio_features":[{"id":"t1","energy":0.75,"key":5},null,{"id":"t3","energy":0.25}]}`)
	})

	features, err := client.AudioFeatures(context.Background(), "u1", []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("features = %d, want 3", len(features))
	}
	if features[0] == nil || features[0].Energy != 0.75 || features[0].Key != 5 {
		t.Errorf("features[0] = %+v", features[0])
	}
	if features[1] != nil {
		t.Errorf("features[1] = %+v, want nil", features[1])
	}
	if ids, _ := url.QueryUnescape(seen()[0].query); ids != "ids=t1,t2,t3" {
		t.Errorf("query = %q", seen()[0].query)
	}
}

func TestAudioFeatures_Empty(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	features, err := client.AudioFeatures(context.Background(), "u1", nil)
	if err != nil || features != nil {
		t.Errorf("AudioFeatures(nil) = %v, %v", features, err)
	}
	if len(seen()) != 0 {
		t.Errorf("requests = %d, want 0", len(seen()))
	}
}

func TestCreatePlaylistAndAddItems(t *testing.T) {
	client, seen := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/owner-1/playlists":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"new-pl","name":"Mix","public":false,"external_urls":{"spotify":"https://open.spotify.com/playlist/new-pl"},"tracks":{"total":0}}`)
		case "/v1/playlists/new-pl/tracks":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"snapshot_id":"s"}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	pl, err := client.CreatePlaylist(context.Background(), "u1", "owner-1", "Mix", "desc", false)
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if pl.ID != "new-pl" || pl.ExternalURLs.Spotify != "https://open.spotify.com/playlist/new-pl" {
		t.Errorf("playlist = %+v", pl)
	}

	var created struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.Unmarshal([]byte(seen()[0].body), &created); err != nil {
		t.Fatalf("decoding create body: %v", err)
	}
	if created.Name != "Mix" || created.Public {
		t.Errorf("create body = %+v", created)
	}

	uris := make([]string, 150)
	for i := range uris {
		uris[i] = "spotify:track:x"
	}
	uris = append(uris, "spotify:local:skipped")
	if err := client.AddItems(context.Background(), "u1", "new-pl", uris); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	// 1 create + 2 add batches (100 + 50)
	reqs := seen()
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}
	var added struct {
		URIs []string `json:"uris"`
	}
	if err := json.Unmarshal([]byte(reqs[2].body), &added); err != nil {
		t.Fatalf("decoding add body: %v", err)
	}
	if len(added.URIs) != 50 || added.URIs[0] != "spotify:track:x" {
		t.Errorf("second batch = %d uris, first %q", len(added.URIs), added.URIs[0])
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"status":403,"message":"Forbidden"}}`)
	})

	_, err := client.CurrentUser(context.Background(), "u1")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", apiErr.Status)
	}
}

func TestTokenFailureIsNotUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()

	client := New(auth.NewFetcher(deadTokens{}, auth.WithHTTPClient(srv.Client())), WithBaseURL(srv.URL+"/v1"))

	_, err := client.PlaylistItems(context.Background(), "u1", "pl1", 50)
	if !errors.Is(err, auth.ErrNoRefreshToken) {
		t.Fatalf("error = %v, want ErrNoRefreshToken", err)
	}
	if errors.Is(err, ErrUpstream) {
		t.Errorf("token failure reported as upstream failure: %v", err)
	}
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/go-spotify-playlist-curator/internal/auth"
	"github.com/justestif/go-spotify-playlist-curator/internal/db"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// mockLookup implements PlaylistLookup for testing.
type mockLookup struct {
	// owned maps playlist id to name for user "u1"
	owned map[string]string
}

func (m *mockLookup) FindForUser(_ context.Context, userID, spotifyID string) (*db.Playlist, error) {
	name, ok := m.owned[spotifyID]
	if !ok || userID != "u1" {
		return nil, db.ErrNotFound
	}
	return &db.Playlist{UserID: userID, SpotifyID: spotifyID, Name: name}, nil
}

// mockSource implements TrackSource for testing.
type mockSource struct {
	items       map[string][]spotify.PlaylistItem
	itemErrors  map[string]error
	delays      map[string]time.Duration
	features    map[string]*spotify.AudioFeatures
	featuresErr error
	// truncate shortens every features response by this many entries
	truncate int

	mu         sync.Mutex
	featureIDs [][]string

	itemCalls    atomic.Int32
	featureCalls atomic.Int32
}

func newMockSource() *mockSource {
	return &mockSource{
		items:      make(map[string][]spotify.PlaylistItem),
		itemErrors: make(map[string]error),
		delays:     make(map[string]time.Duration),
		features:   make(map[string]*spotify.AudioFeatures),
	}
}

func (m *mockSource) PlaylistItems(ctx context.Context, _ string, playlistID string, limit int) ([]spotify.PlaylistItem, error) {
	m.itemCalls.Add(1)
	if limit != PageSize {
		return nil, errors.New("unexpected page size")
	}
	if d := m.delays[playlistID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.itemErrors[playlistID]; err != nil {
		return nil, err
	}
	return m.items[playlistID], nil
}

func (m *mockSource) AudioFeatures(_ context.Context, _ string, ids []string) ([]*spotify.AudioFeatures, error) {
	m.featureCalls.Add(1)
	m.mu.Lock()
	m.featureIDs = append(m.featureIDs, slices.Clone(ids))
	m.mu.Unlock()
	if m.featuresErr != nil {
		return nil, m.featuresErr
	}
	out := make([]*spotify.AudioFeatures, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.features[id])
	}
	return out[:max(0, len(out)-m.truncate)], nil
}

func trackItem(id string) spotify.PlaylistItem {
	return spotify.PlaylistItem{Track: &spotify.Track{ID: id, Name: "Song " + id, Type: "track", URI: "spotify:track:" + id}}
}

func episodeItem(id string) spotify.PlaylistItem {
	return spotify.PlaylistItem{Track: &spotify.Track{ID: id, Name: "Episode " + id, Type: "episode"}}
}

func trackIDs(tracks []spotify.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func TestBuild_PreservesInputOrder(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"a": "A", "b": "B", "c": "C"}}
	source := newMockSource()
	source.items["a"] = []spotify.PlaylistItem{trackItem("a1")}
	source.items["b"] = []spotify.PlaylistItem{trackItem("b1")}
	source.items["c"] = []spotify.PlaylistItem{trackItem("c1")}
	// First playlist finishes last.
	source.delays["a"] = 60 * time.Millisecond
	source.delays["b"] = 30 * time.Millisecond

	agg := NewAggregator(lookup, source, WithConcurrency(3))
	got, err := agg.Build(context.Background(), "u1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	if !slices.Equal(names, []string{"A", "B", "C"}) {
		t.Errorf("order = %v, want [A B C]", names)
	}
}

func TestBuild_SkipsUnownedAndFailedPlaylists(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"good": "Good", "broken": "Broken"}}
	source := newMockSource()
	source.items["good"] = []spotify.PlaylistItem{trackItem("t1")}
	source.itemErrors["broken"] = spotify.ErrUpstream

	agg := NewAggregator(lookup, source, WithConcurrency(1))
	got, err := agg.Build(context.Background(), "u1", []string{"someone-elses", "broken", "good"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Errorf("playlists = %+v, want only 'good'", got)
	}
	// The unowned playlist never reaches Spotify.
	if calls := source.itemCalls.Load(); calls != 2 {
		t.Errorf("item calls = %d, want 2", calls)
	}
}

func TestBuild_NoValidPlaylists(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"broken": "Broken"}}
	source := newMockSource()
	source.itemErrors["broken"] = &spotify.APIError{Status: 500}

	agg := NewAggregator(lookup, source)
	_, err := agg.Build(context.Background(), "u1", []string{"missing", "broken"})
	if !errors.Is(err, ErrNoValidPlaylists) {
		t.Fatalf("error = %v, want ErrNoValidPlaylists", err)
	}
}

func TestBuild_TokenFailuresAreNotSkipped(t *testing.T) {
	tests := []struct {
		name        string
		itemErr     error
		featuresErr error
		want        error
	}{
		{"items: no refresh token", fmt.Errorf("fetching items: %w", auth.ErrNoRefreshToken), nil, auth.ErrNoRefreshToken},
		{"items: refresh failed", fmt.Errorf("%w: status 400", auth.ErrRefreshFailed), nil, auth.ErrRefreshFailed},
		{"features: no refresh token", nil, fmt.Errorf("fetching audio features: %w", auth.ErrNoRefreshToken), auth.ErrNoRefreshToken},
		{"features: refresh failed", nil, auth.ErrRefreshFailed, auth.ErrRefreshFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &mockLookup{owned: map[string]string{"p1": "One", "p2": "Two"}}
			source := newMockSource()
			source.items["p1"] = []spotify.PlaylistItem{trackItem("t1")}
			source.items["p2"] = []spotify.PlaylistItem{trackItem("t2")}
			if tt.itemErr != nil {
				source.itemErrors["p1"] = tt.itemErr
			}
			source.featuresErr = tt.featuresErr

			_, err := NewAggregator(lookup, source, WithConcurrency(1)).Build(context.Background(), "u1", []string{"p1", "p2"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if errors.Is(err, ErrNoValidPlaylists) {
				t.Errorf("token failure reported as ErrNoValidPlaylists")
			}
		})
	}
}

func TestBuild_FiltersBeforeFeatureJoin(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"p": "Mixed"}}
	source := newMockSource()
	source.items["p"] = []spotify.PlaylistItem{
		trackItem("t1"),
		episodeItem("e1"),
		{Track: nil},
		trackItem("t2"),
	}
	source.features["t1"] = &spotify.AudioFeatures{ID: "t1", Energy: 0.1}
	source.features["t2"] = &spotify.AudioFeatures{ID: "t2", Energy: 0.2}

	agg := NewAggregator(lookup, source)
	got, err := agg.Build(context.Background(), "u1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracks := got[0].Tracks
	if !slices.Equal(trackIDs(tracks), []string{"t1", "t2"}) {
		t.Fatalf("tracks = %v, want [t1 t2]", trackIDs(tracks))
	}
	if !slices.Equal(source.featureIDs[0], []string{"t1", "t2"}) {
		t.Errorf("feature ids = %v, want [t1 t2]", source.featureIDs[0])
	}
	for _, tr := range tracks {
		if tr.AudioFeatures == nil || tr.AudioFeatures.ID != tr.ID {
			t.Errorf("track %s has features %+v", tr.ID, tr.AudioFeatures)
		}
	}
}

func TestBuild_FeatureFailureLeavesNilFeatures(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"p": "P"}}
	source := newMockSource()
	source.items["p"] = []spotify.PlaylistItem{trackItem("t1"), trackItem("t2")}
	source.featuresErr = spotify.ErrUpstream

	got, err := NewAggregator(lookup, source).Build(context.Background(), "u1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tr := range got[0].Tracks {
		if tr.AudioFeatures != nil {
			t.Errorf("track %s has features, want nil", tr.ID)
		}
	}
}

func TestBuild_ShortFeatureResponse(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"p": "P"}}
	source := newMockSource()
	source.items["p"] = []spotify.PlaylistItem{trackItem("t1"), trackItem("t2"), trackItem("t3")}
	for _, id := range []string{"t1", "t2", "t3"} {
		source.features[id] = &spotify.AudioFeatures{ID: id}
	}
	source.truncate = 1

	got, err := NewAggregator(lookup, source).Build(context.Background(), "u1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracks := got[0].Tracks
	if tracks[0].AudioFeatures == nil || tracks[1].AudioFeatures == nil {
		t.Error("first two tracks should have features")
	}
	if tracks[2].AudioFeatures != nil {
		t.Error("third track should have nil features")
	}
}

func TestBuild_EmptyPlaylistSkipsFeatureCall(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"p": "Podcasts"}}
	source := newMockSource()
	source.items["p"] = []spotify.PlaylistItem{episodeItem("e1")}

	got, err := NewAggregator(lookup, source).Build(context.Background(), "u1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0].Tracks) != 0 {
		t.Errorf("playlists = %+v, want one empty playlist", got)
	}
	if calls := source.featureCalls.Load(); calls != 0 {
		t.Errorf("feature calls = %d, want 0", calls)
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	lookup := &mockLookup{owned: map[string]string{"p": "P"}}
	source := newMockSource()
	source.items["p"] = []spotify.PlaylistItem{trackItem("t1")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(lookup, source).Build(ctx, "u1", []string{"p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPairByPosition(t *testing.T) {
	f := func(id string) *spotify.AudioFeatures { return &spotify.AudioFeatures{ID: id} }
	tracks := []spotify.Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		name     string
		features []*spotify.AudioFeatures
		want     []string // feature id per track, "" for nil
	}{
		{"same length", []*spotify.AudioFeatures{f("a"), f("b"), f("c")}, []string{"a", "b", "c"}},
		{"shorter", []*spotify.AudioFeatures{f("a")}, []string{"a", "", ""}},
		{"null slot", []*spotify.AudioFeatures{f("a"), nil, f("c")}, []string{"a", "", "c"}},
		{"none", nil, []string{"", "", ""}},
		{"longer", []*spotify.AudioFeatures{f("a"), f("b"), f("c"), f("d")}, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attachFeatures(pairByPosition(tracks, tt.features))
			if len(got) != len(tracks) {
				t.Fatalf("len = %d, want %d", len(got), len(tracks))
			}
			for i, want := range tt.want {
				var id string
				if got[i].AudioFeatures != nil {
					id = got[i].AudioFeatures.ID
				}
				if id != want {
					t.Errorf("track %d features = %q, want %q", i, id, want)
				}
			}
		})
	}
}

func TestTracks_ReturnsFetchError(t *testing.T) {
	source := newMockSource()
	source.itemErrors["p"] = spotify.ErrUpstream

	_, err := NewAggregator(&mockLookup{}, source).Tracks(context.Background(), "u1", "p")
	if !errors.Is(err, spotify.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

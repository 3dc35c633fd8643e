package generate

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/memstore"
)

// fakeCatalog implements CatalogBuilder for testing.
type fakeCatalog struct {
	playlists []catalog.SourcePlaylist
	err       error
	calls     atomic.Int32
}

func (f *fakeCatalog) Build(_ context.Context, _ string, _ []string) ([]catalog.SourcePlaylist, error) {
	f.calls.Add(1)
	return f.playlists, f.err
}

func TestServiceGenerate(t *testing.T) {
	store := memstore.New()
	model := &fakeModel{response: `{"playlist_name":"Drive","playlist_description":"Go","recommended_tracks":[{"name":"Sunrise"}]}`}
	svc := NewService(&fakeCatalog{playlists: twoPlaylists()}, NewEngine(model), store.Generations(), nil)

	out, err := svc.Generate(context.Background(), "u1", Request{PlaylistIDs: []string{"p1", "p2"}, Prompt: "road trip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := store.Generations().Get(context.Background(), out.Generation.ID)
	if err != nil {
		t.Fatalf("generation not persisted: %v", err)
	}
	if saved.UserID != "u1" || saved.Name != "Drive" || saved.Description != "Go" {
		t.Errorf("saved = %+v", saved)
	}
	if !slices.Equal(saved.SourcePlaylistIDs, []string{"p1", "p2"}) {
		t.Errorf("SourcePlaylistIDs = %v", saved.SourcePlaylistIDs)
	}
	if !slices.Equal(ids(saved.Tracks), []string{"1a"}) {
		t.Errorf("Tracks = %v, want [1a]", ids(saved.Tracks))
	}
	if saved.Prompt == nil || *saved.Prompt != "road trip" {
		t.Errorf("Prompt = %v, want road trip", saved.Prompt)
	}
	if saved.PublishedPlaylistID != nil {
		t.Error("new generation should not be published")
	}
	if out.Analysis.PlaylistName != "Drive" {
		t.Errorf("Analysis.PlaylistName = %q", out.Analysis.PlaylistName)
	}
}

func TestServiceGenerate_DefaultPrompt(t *testing.T) {
	store := memstore.New()
	model := &fakeModel{response: `{}`}
	svc := NewService(&fakeCatalog{playlists: twoPlaylists()}, NewEngine(model), store.Generations(), nil)

	out, err := svc.Generate(context.Background(), "u1", Request{PlaylistIDs: []string{"p1"}, Prompt: "   "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Generation.Prompt != nil {
		t.Errorf("Prompt = %q, want nil", *out.Generation.Prompt)
	}
	prompt := model.request().Messages[0].Content
	if !slices.Contains(strings.Split(prompt, "\n"), "User request: "+DefaultPrompt) {
		t.Errorf("prompt should carry the default request")
	}
	if out.Generation.Name != defaultPlaylistName {
		t.Errorf("Name = %q, want %q", out.Generation.Name, defaultPlaylistName)
	}
	if len(out.Generation.Tracks) != 6 {
		t.Errorf("tracks = %d, want 6 fallback tracks", len(out.Generation.Tracks))
	}
}

func TestServiceGenerate_Errors(t *testing.T) {
	tests := []struct {
		name         string
		req          Request
		catalog      *fakeCatalog
		model        *fakeModel
		wantErr      error
		wantModelHit bool
	}{
		{
			name:    "no playlists selected",
			req:     Request{},
			catalog: &fakeCatalog{},
			model:   &fakeModel{},
			wantErr: ErrNoPlaylistsSelected,
		},
		{
			name:    "no valid playlists",
			req:     Request{PlaylistIDs: []string{"x"}},
			catalog: &fakeCatalog{err: catalog.ErrNoValidPlaylists},
			model:   &fakeModel{},
			wantErr: catalog.ErrNoValidPlaylists,
		},
		{
			name:         "invalid model output",
			req:          Request{PlaylistIDs: []string{"p1"}},
			catalog:      &fakeCatalog{playlists: twoPlaylists()},
			model:        &fakeModel{response: "nope"},
			wantErr:      ErrInvalidModelOutput,
			wantModelHit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			svc := NewService(tt.catalog, NewEngine(tt.model), store.Generations(), nil)

			_, err := svc.Generate(context.Background(), "u1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if hit := tt.model.calls.Load() > 0; hit != tt.wantModelHit {
				t.Errorf("model called = %v, want %v", hit, tt.wantModelHit)
			}
		})
	}
}

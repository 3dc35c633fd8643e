package playlists

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-spotify-playlist-curator/internal/memstore"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// fakeSpotify implements SpotifyReader for testing.
type fakeSpotify struct {
	playlists    []spotify.Playlist
	playlistsErr error
	profile      *spotify.User
	profileErr   error

	playlistCalls atomic.Int32
}

func (f *fakeSpotify) CurrentUser(context.Context, string) (*spotify.User, error) {
	return f.profile, f.profileErr
}

func (f *fakeSpotify) CurrentUserPlaylists(_ context.Context, _ string, limit int) ([]spotify.Playlist, error) {
	f.playlistCalls.Add(1)
	if limit != spotify.MaxPageSize {
		return nil, errors.New("unexpected limit")
	}
	return f.playlists, f.playlistsErr
}

// fakeTracks implements TrackReader for testing.
type fakeTracks struct {
	tracks []spotify.Track
	err    error
}

func (f *fakeTracks) Tracks(context.Context, string, string) ([]spotify.Track, error) {
	return f.tracks, f.err
}

func remotePlaylists() []spotify.Playlist {
	return []spotify.Playlist{
		{
			ID: "mine", Name: "Mine", Description: "my mix",
			Images: []spotify.Image{{URL: "https://img/1"}, {URL: "https://img/2"}},
			Owner:  spotify.Owner{ID: "acct"},
			Tracks: spotify.TrackCount{Total: 12},
		},
		{ID: "followed", Name: "Followed", Owner: spotify.Owner{ID: "someone"}, Tracks: spotify.TrackCount{Total: 3}},
		{ID: "mine", Name: "Mine (duplicate)", Owner: spotify.Owner{ID: "acct"}},
	}
}

func TestRefresh(t *testing.T) {
	store := memstore.New()
	reader := &fakeSpotify{playlists: remotePlaylists(), profile: &spotify.User{ID: "acct"}}
	svc := New(reader, store.Playlists(), &fakeTracks{}, nil)

	got, err := svc.Refresh(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	byID := make(map[string]Playlist)
	for _, p := range got {
		byID[p.ID] = p
	}
	mine := byID["mine"]
	if mine.Name != "Mine" || mine.Tracks.Total != 12 {
		t.Errorf("mine = %+v", mine)
	}
	if mine.Description == nil || *mine.Description != "my mix" {
		t.Errorf("description = %v, want my mix", mine.Description)
	}
	if !slices.Equal(mine.Images, []Image{{URL: "https://img/1"}}) {
		t.Errorf("images = %v", mine.Images)
	}
	followed := byID["followed"]
	if followed.Description != nil || followed.Images == nil || len(followed.Images) != 0 {
		t.Errorf("followed = %+v, want nil description and empty images", followed)
	}

	stored, _ := store.Playlists().FindForUser(context.Background(), "u1", "mine")
	if !stored.IsOwner {
		t.Error("mine should be owned")
	}
	stored, _ = store.Playlists().FindForUser(context.Background(), "u1", "followed")
	if stored.IsOwner {
		t.Error("followed should not be owned")
	}
}

func TestRefresh_ProfileFailureMarksNotOwned(t *testing.T) {
	store := memstore.New()
	reader := &fakeSpotify{playlists: remotePlaylists(), profileErr: spotify.ErrUpstream}
	svc := New(reader, store.Playlists(), &fakeTracks{}, nil)

	if _, err := svc.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err := store.Playlists().FindForUser(context.Background(), "u1", "mine")
	if err != nil {
		t.Fatalf("FindForUser: %v", err)
	}
	if stored.IsOwner {
		t.Error("ownership should be false when the profile is unavailable")
	}
}

func TestRefresh_UpstreamFailure(t *testing.T) {
	store := memstore.New()
	reader := &fakeSpotify{playlistsErr: &spotify.APIError{Status: 500, Body: "oops"}}
	svc := New(reader, store.Playlists(), &fakeTracks{}, nil)

	_, err := svc.Refresh(context.Background(), "u1")
	if !errors.Is(err, spotify.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	list, _ := store.Playlists().ListForUser(context.Background(), "u1")
	if len(list) != 0 {
		t.Errorf("stored %d playlists after failure, want 0", len(list))
	}
}

func TestRefresh_KeepsPreviouslyCachedPlaylists(t *testing.T) {
	store := memstore.New()
	reader := &fakeSpotify{playlists: remotePlaylists()[:1], profile: &spotify.User{ID: "acct"}}
	svc := New(reader, store.Playlists(), &fakeTracks{}, nil)

	if _, err := svc.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	reader.playlists = remotePlaylists()[1:2]
	got, err := svc.Refresh(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestTracks(t *testing.T) {
	want := []spotify.Track{{ID: "t1"}, {ID: "t2"}}
	svc := New(&fakeSpotify{}, memstore.New().Playlists(), &fakeTracks{tracks: want}, nil)

	got, err := svc.Tracks(context.Background(), "u1", "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" {
		t.Errorf("tracks = %+v", got)
	}

	svc = New(&fakeSpotify{}, memstore.New().Playlists(), &fakeTracks{err: spotify.ErrUpstream}, nil)
	if _, err := svc.Tracks(context.Background(), "u1", "p"); !errors.Is(err, spotify.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

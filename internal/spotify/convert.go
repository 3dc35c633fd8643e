package spotify

import "github.com/zmb3/spotify/v2"

// convertPlaylistItem maps an API playlist item. Episodes keep only their
// type; removed entries get a nil Track.
func convertPlaylistItem(item spotify.PlaylistItem) PlaylistItem {
	out := PlaylistItem{AddedAt: item.AddedAt}
	switch {
	case item.Track.Track != nil:
		t := convertTrack(item.Track.Track)
		out.Track = &t
	case item.Track.Episode != nil:
		out.Track = &Track{Type: "episode"}
	}
	return out
}

func convertTrack(t *spotify.FullTrack) Track {
	artists := make([]Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = Artist{ID: string(a.ID), Name: a.Name}
	}

	return Track{
		ID:      string(t.ID),
		Name:    t.Name,
		Artists: artists,
		Album: Album{
			ID:     string(t.Album.ID),
			Name:   t.Album.Name,
			Images: convertImages(t.Album.Images),
		},
		DurationMs:   int(t.Duration),
		URI:          string(t.URI),
		Type:         "track",
		ExternalURLs: ExternalURLs{Spotify: t.ExternalURLs["spotify"]},
	}
}

func convertPlaylist(p spotify.SimplePlaylist) Playlist {
	public := p.IsPublic
	return Playlist{
		ID:          string(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Public:      &public,
		Images:      convertImages(p.Images),
		Owner: Owner{
			ID:          p.Owner.ID,
			DisplayName: p.Owner.DisplayName,
		},
		Tracks:       TrackCount{Total: int(p.Tracks.Total)},
		ExternalURLs: ExternalURLs{Spotify: p.ExternalURLs["spotify"]},
		URI:          string(p.URI),
	}
}

func convertUser(u *spotify.PrivateUser) *User {
	return &User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Images:      convertImages(u.Images),
	}
}

func convertImages(images []spotify.Image) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		out[i] = Image{URL: img.URL}
		if h := int(img.Height); h > 0 {
			out[i].Height = &h
		}
		if w := int(img.Width); w > 0 {
			out[i].Width = &w
		}
	}
	return out
}

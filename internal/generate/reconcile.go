package generate

import (
	"slices"
	"strings"

	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// maxFallbackTracks caps the tracks returned when nothing could be matched.
const maxFallbackTracks = 25

// reconcile maps each recommendation to at most one catalog track. For each
// recommendation, playlists are scanned in order and each playlist offers
// its first track whose title contains the recommended name, or one of whose
// artists contains the recommended artist. The first offer not already taken
// wins. A playlist whose first match is taken offers nothing further.
func reconcile(recs []Recommendation, playlists []catalog.SourcePlaylist) []spotify.Track {
	selected := make(map[string]bool)
	var out []spotify.Track

	for _, rec := range recs {
		name := strings.ToLower(strings.TrimSpace(rec.Name))
		artist := strings.ToLower(strings.TrimSpace(rec.Artist))
		if name == "" && artist == "" {
			continue
		}

		if t, ok := findMatch(playlists, name, artist, selected); ok {
			selected[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

func findMatch(playlists []catalog.SourcePlaylist, name, artist string, selected map[string]bool) (spotify.Track, bool) {
	for _, p := range playlists {
		i := slices.IndexFunc(p.Tracks, func(t spotify.Track) bool {
			return matches(t, name, artist)
		})
		if i >= 0 && !selected[p.Tracks[i].ID] {
			return p.Tracks[i], true
		}
	}
	return spotify.Track{}, false
}

// matches compares lowercased recommendation fields against a track. An
// empty field never matches.
func matches(t spotify.Track, name, artist string) bool {
	if name != "" && strings.Contains(strings.ToLower(t.Name), name) {
		return true
	}
	if artist == "" {
		return false
	}
	for _, a := range t.Artists {
		if strings.Contains(strings.ToLower(a.Name), artist) {
			return true
		}
	}
	return false
}

// fallback returns the first catalog tracks in playlist-then-track order,
// deduplicated by id.
func fallback(playlists []catalog.SourcePlaylist, limit int) []spotify.Track {
	seen := make(map[string]bool)
	var out []spotify.Track
	for _, p := range playlists {
		for _, t := range p.Tracks {
			if len(out) == limit {
				return out
			}
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

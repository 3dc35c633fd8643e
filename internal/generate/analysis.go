package generate

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Defaults applied when the model omits or garbles a field.
const (
	defaultEnergyLevel  = 6
	defaultTheme        = "mixed"
	defaultMood         = "Mixed"
	defaultPlaylistName = "AI Generated Playlist"
)

// Recommendation is one track the model suggested.
type Recommendation struct {
	Name        string  `json:"name"`
	Artist      string  `json:"artist"`
	Reason      string  `json:"reason"`
	EnergyScore float64 `json:"energy_score"`
}

// Analysis is the model's reading of the source playlists, normalized to
// one field naming convention.
type Analysis struct {
	Theme               string           `json:"theme"`
	Mood                string           `json:"mood"`
	EnergyLevel         float64          `json:"energy_level"`
	Genres              []string         `json:"genres"`
	RecommendedTracks   []Recommendation `json:"recommended_tracks"`
	PlaylistName        string           `json:"playlist_name"`
	PlaylistDescription string           `json:"playlist_description"`
}

// fields is a decoded JSON object whose values are decoded lazily.
type fields map[string]json.RawMessage

// normalize builds an Analysis from a decoded model object, accepting both
// snake_case and camelCase keys.
func normalize(obj fields) *Analysis {
	a := &Analysis{
		Theme:               obj.str(defaultTheme, "theme"),
		Mood:                obj.str(defaultMood, "mood"),
		EnergyLevel:         obj.num(defaultEnergyLevel, "energy_level", "energyLevel"),
		Genres:              obj.strs("genres"),
		PlaylistName:        obj.str(defaultPlaylistName, "playlist_name", "playlistName"),
		PlaylistDescription: obj.str("", "playlist_description", "playlistDescription"),
	}

	var items []fields
	for _, key := range []string{"recommended_tracks", "recommendedTracks"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			break
		}
		items = nil
	}

	a.RecommendedTracks = make([]Recommendation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		a.RecommendedTracks = append(a.RecommendedTracks, Recommendation{
			Name:        item.str("", "name", "title"),
			Artist:      item.str("", "artist", "artist_name", "artistName"),
			Reason:      item.str("", "reason"),
			EnergyScore: item.num(0, "energy_score", "energyScore"),
		})
	}
	return a
}

// str returns the first key holding a non-empty string.
func (f fields) str(def string, keys ...string) string {
	for _, key := range keys {
		var s string
		if raw, ok := f[key]; ok && json.Unmarshal(raw, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return def
}

// num returns the first key holding a number or a numeric string.
func (f fields) num(def float64, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var n float64
		if json.Unmarshal(raw, &n) == nil {
			return n
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return n
			}
		}
	}
	return def
}

// strs returns the string elements of the first key holding an array.
// Non-string elements are dropped. The result is never nil.
func (f fields) strs(keys ...string) []string {
	out := []string{}
	for _, key := range keys {
		var items []any
		if raw, ok := f[key]; ok && json.Unmarshal(raw, &items) == nil {
			for _, item := range items {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return out
}

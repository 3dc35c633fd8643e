package catalog

import "github.com/justestif/go-spotify-playlist-curator/internal/spotify"

// featuredTrack ties a retained track to the audio-features slot at the same
// position of the features response. Spotify's audio-features endpoint is
// positional, so the pairing is made once here and nowhere else.
type featuredTrack struct {
	track    spotify.Track
	features *spotify.AudioFeatures
}

// pairByPosition pairs tracks[i] with features[i]. Tracks beyond the end of
// features, and tracks whose slot is null, get nil features.
func pairByPosition(tracks []spotify.Track, features []*spotify.AudioFeatures) []featuredTrack {
	pairs := make([]featuredTrack, len(tracks))
	for i, t := range tracks {
		pairs[i].track = t
		if i < len(features) {
			pairs[i].features = features[i]
		}
	}
	return pairs
}

// attachFeatures flattens pairs back into tracks carrying their features.
func attachFeatures(pairs []featuredTrack) []spotify.Track {
	tracks := make([]spotify.Track, len(pairs))
	for i, p := range pairs {
		tracks[i] = p.track
		tracks[i].AudioFeatures = p.features
	}
	return tracks
}

package catalog

import (
	"cmp"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-spotify-playlist-curator/internal/spotify"
)

// DefaultMoodClusters is the number of mood groups a profile is split into.
const DefaultMoodClusters = 3

// Mood is a group of catalog tracks with similar audio features.
type Mood struct {
	Name        string
	Description string
	TrackCount  int
	Centroid    map[string]float64 // average feature values for the group
}

// trackObservation wraps a track to implement clusters.Observation.
type trackObservation struct {
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// featureNames defines the audio features used for clustering.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

// MoodProfile groups the catalog's tracks into k moods using k-means over
// their audio features, largest group first. Tracks without features are
// ignored, and each track is counted once even if it appears in several
// playlists. Returns nil when fewer than k tracks carry features.
func MoodProfile(playlists []SourcePlaylist, k int) []Mood {
	if k <= 0 {
		k = DefaultMoodClusters
	}

	seen := make(map[string]bool)
	var obs clusters.Observations
	for _, p := range playlists {
		for _, t := range p.Tracks {
			if t.AudioFeatures == nil || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			obs = append(obs, trackObservation{coords: extractFeatures(t.AudioFeatures)})
		}
	}

	if len(obs) < k {
		return nil
	}

	result, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil
	}

	moods := make([]Mood, 0, len(result))
	for _, cluster := range result {
		if len(cluster.Observations) == 0 {
			continue
		}

		centroid := make(map[string]float64, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = cluster.Center[i]
		}

		category := moodCategory(centroid)
		moods = append(moods, Mood{
			Name:        category.name,
			Description: category.description,
			TrackCount:  len(cluster.Observations),
			Centroid:    centroid,
		})
	}

	slices.SortStableFunc(moods, func(a, b Mood) int {
		return cmp.Compare(b.TrackCount, a.TrackCount)
	})
	return moods
}

// extractFeatures returns the clustering coordinates of a feature vector.
func extractFeatures(f *spotify.AudioFeatures) clusters.Coordinates {
	return clusters.Coordinates{
		f.Energy,
		f.Valence,
		f.Danceability,
		f.Acousticness,
	}
}

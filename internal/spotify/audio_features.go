package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// AudioFeatures fetches features for up to 100 track ids in one call.
// The result is positional: entry i belongs to ids[i] and is nil when Spotify
// has no features for that track. The response may be shorter than ids.
func (c *Client) AudioFeatures(ctx context.Context, userID string, ids []string) ([]*AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxFeaturesPerRequest {
		return nil, fmt.Errorf("audio features: %d ids exceeds limit of %d", len(ids), maxFeaturesPerRequest)
	}

	batch := make([]spotify.ID, len(ids))
	for i, id := range ids {
		batch[i] = spotify.ID(id)
	}

	features, err := c.api(userID).GetAudioFeatures(ctx, batch...)
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", wrapError(err))
	}

	out := make([]*AudioFeatures, len(features))
	for i, f := range features {
		if f != nil {
			out[i] = convertAudioFeatures(f)
		}
	}
	return out, nil
}

// convertAudioFeatures copies feature values without rescaling them.
func convertAudioFeatures(f *spotify.AudioFeatures) *AudioFeatures {
	return &AudioFeatures{
		ID:               string(f.ID),
		Danceability:     float64(f.Danceability),
		Energy:           float64(f.Energy),
		Key:              int(f.Key),
		Loudness:         float64(f.Loudness),
		Mode:             int(f.Mode),
		Speechiness:      float64(f.Speechiness),
		Acousticness:     float64(f.Acousticness),
		Instrumentalness: float64(f.Instrumentalness),
		Liveness:         float64(f.Liveness),
		Valence:          float64(f.Valence),
		Tempo:            float64(f.Tempo),
		DurationMs:       int(f.Duration),
		TimeSignature:    int(f.TimeSignature),
	}
}

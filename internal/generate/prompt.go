package generate

import (
	"fmt"
	"strings"

	"github.com/justestif/go-spotify-playlist-curator/internal/catalog"
)

// maxPromptTracks bounds how many tracks of each playlist are sent to the model.
const maxPromptTracks = 50

const systemPrompt = "You are an expert music curator and playlist generator. " +
	"Analyze music data and create a cohesive playlist based on instructions."

const responseShape = `{
  "theme": string,
  "mood": string,
  "energy_level": number,
  "genres": [string],
  "recommended_tracks": [
    {"name": string, "artist": string, "reason": string, "energy_score": number}
  ],
  "playlist_name": string,
  "playlist_description": string
}`

// buildPrompt renders the user prompt: every source playlist as condensed
// "artist - title" lines, the mood profile when there is one, and the
// user's request.
func buildPrompt(playlists []catalog.SourcePlaylist, moods []catalog.Mood, request string) string {
	var b strings.Builder

	b.WriteString("Analyze the playlists below and pick up to 25 tracks from them that best fit the user request.\n")
	b.WriteString("Use the exact track titles and artist names as listed.\n")

	for _, p := range playlists {
		fmt.Fprintf(&b, "\nPlaylist: %s\nTracks:\n", p.Name)
		for _, t := range p.Tracks[:min(len(p.Tracks), maxPromptTracks)] {
			fmt.Fprintf(&b, "%s - %s\n", t.ArtistNames(), t.Name)
		}
	}

	if len(moods) > 0 {
		b.WriteString("\nMood profile of these tracks:\n")
		for _, m := range moods {
			fmt.Fprintf(&b, "- %s: %d tracks (%s)\n", m.Name, m.TrackCount, m.Description)
		}
	}

	fmt.Fprintf(&b, "\nUser request: %s\n", request)
	b.WriteString("\nRespond ONLY with valid JSON (no markdown):\n")
	b.WriteString(responseShape)
	return b.String()
}

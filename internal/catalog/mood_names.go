package catalog

type category struct {
	name        string
	description string
}

// moodCategory names a centroid using a 2x2 energy/valence quadrant system
// with an acousticness modifier.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
//
// Acousticness above 0.6 appends "(Acoustic)".
func moodCategory(centroid map[string]float64) category {
	highEnergy := centroid["energy"] > 0.6
	highValence := centroid["valence"] > 0.5

	var c category
	switch {
	case highEnergy && highValence:
		c = category{"Upbeat Party", "High-energy, positive vibes - perfect for dancing and celebrations"}
	case highEnergy:
		c = category{"Intense & Dark", "Intense, driving energy with darker emotional tones"}
	case highValence:
		c = category{"Chill & Happy", "Relaxed and uplifting - great for unwinding"}
	default:
		c = category{"Reflective & Melancholy", "Contemplative and introspective - ideal for quiet moments"}
	}

	if centroid["acousticness"] > 0.6 {
		c.name += " (Acoustic)"
	}
	return c
}

package tasks

import (
	"math"
	"math/rand/v2"

	"github.com/desertthunder/freshweekly/internal/models"
)

// WeightedEntry is an identifier with a positive sampling weight.
type WeightedEntry struct {
	ID     string
	Weight float64
}

// WeightedSample draws up to count distinct ids without replacement.
//
// Each draw picks an entry with probability weight^bias over the remaining pool, which is
// renormalized after every draw. Entries with a non-positive weight are ignored. A nil rng
// falls back to the package-level source.
func WeightedSample(entries []WeightedEntry, count int, bias float64, rng *rand.Rand) []string {
	if count <= 0 {
		return nil
	}

	pool := make([]WeightedEntry, 0, len(entries))
	for _, e := range entries {
		if !(e.Weight > 0) {
			continue
		}
		pool = append(pool, WeightedEntry{ID: e.ID, Weight: math.Pow(e.Weight, bias)})
	}

	n := min(count, len(pool))
	picked := make([]string, 0, n)
	for len(picked) < n {
		total := 0.0
		for _, e := range pool {
			total += e.Weight
		}

		roll := float64n(rng) * total
		idx := len(pool) - 1
		cumulative := 0.0
		for i, e := range pool {
			cumulative += e.Weight
			if cumulative > roll {
				idx = i
				break
			}
		}

		picked = append(picked, pool[idx].ID)
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return picked
}

// ArtistWeights counts primary artist occurrences in first-seen order.
//
// Tracks without a primary artist are skipped.
func ArtistWeights(tracks []models.Track) []WeightedEntry {
	entries, _ := artistIndex(tracks)
	return entries
}

// artistIndex returns the weights plus every primary artist keyed by id.
func artistIndex(tracks []models.Track) ([]WeightedEntry, map[string]models.Artist) {
	position := make(map[string]int)
	artists := make(map[string]models.Artist)
	var entries []WeightedEntry

	for _, t := range tracks {
		artist, ok := t.PrimaryArtist()
		if !ok {
			continue
		}
		if i, seen := position[artist.ID]; seen {
			entries[i].Weight++
			continue
		}
		position[artist.ID] = len(entries)
		artists[artist.ID] = artist
		entries = append(entries, WeightedEntry{ID: artist.ID, Weight: 1})
	}
	return entries, artists
}

func float64n(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

// shuffle permutes items in place.
func shuffle[T any](rng *rand.Rand, items []T) {
	swap := func(i, j int) { items[i], items[j] = items[j], items[i] }
	if rng == nil {
		rand.Shuffle(len(items), swap)
		return
	}
	rng.Shuffle(len(items), swap)
}

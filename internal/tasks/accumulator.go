package tasks

import (
	"math/rand/v2"

	"github.com/desertthunder/freshweekly/internal/models"
)

// Accumulator gathers accepted tracks across discovery tiers.
//
// It never holds more than target tracks, never more than cap tracks per primary artist,
// and never a URI that is excluded or already accepted.
type Accumulator struct {
	target    int
	cap       int
	excluded  map[string]struct{}
	seen      map[string]struct{}
	perArtist map[string]int
	accepted  []models.Track
	rng       *rand.Rand
}

// NewAccumulator creates an [Accumulator] that rejects the excluded URIs.
func NewAccumulator(target, cap int, excluded []string, rng *rand.Rand) *Accumulator {
	set := make(map[string]struct{}, len(excluded))
	for _, uri := range excluded {
		if uri != "" {
			set[uri] = struct{}{}
		}
	}
	return &Accumulator{
		target:    target,
		cap:       cap,
		excluded:  set,
		seen:      make(map[string]struct{}),
		perArtist: make(map[string]int),
		rng:       rng,
	}
}

// Add offers a batch of candidates in random order and returns how many were accepted.
//
// The caller's slice is not reordered.
func (a *Accumulator) Add(candidates []models.Track) int {
	batch := make([]models.Track, len(candidates))
	copy(batch, candidates)
	shuffle(a.rng, batch)

	added := 0
	for _, t := range batch {
		if a.Satisfied() {
			break
		}
		if t.URI == "" {
			continue
		}
		if _, ok := a.excluded[t.URI]; ok {
			continue
		}
		if _, ok := a.seen[t.URI]; ok {
			continue
		}

		artist, ok := t.PrimaryArtist()
		if !ok || a.perArtist[artist.ID] >= a.cap {
			continue
		}

		a.accepted = append(a.accepted, t)
		a.seen[t.URI] = struct{}{}
		a.perArtist[artist.ID]++
		added++
	}
	return added
}

// Satisfied reports whether the target count has been reached.
func (a *Accumulator) Satisfied() bool {
	return len(a.accepted) >= a.target
}

// Len is the number of accepted tracks.
func (a *Accumulator) Len() int {
	return len(a.accepted)
}

// Result returns a copy of the accepted tracks in acceptance order.
func (a *Accumulator) Result() []models.Track {
	out := make([]models.Track, len(a.accepted))
	copy(out, a.accepted)
	return out
}

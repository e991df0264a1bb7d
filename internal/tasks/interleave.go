package tasks

import (
	"sort"

	"github.com/desertthunder/freshweekly/internal/models"
)

type artistBucket struct {
	artistID string
	order    int
	tracks   []models.Track
}

// Interleave reorders tracks so the same primary artist does not play twice in a row
// while another artist still has tracks left.
//
// Each step emits from the largest remaining bucket whose artist differs from the last one
// emitted. Ties break by the order artists first appear. Tracks without an artist share one bucket.
func Interleave(tracks []models.Track) []models.Track {
	if len(tracks) == 0 {
		return nil
	}

	index := make(map[string]int)
	var buckets []*artistBucket
	for _, t := range tracks {
		id := ""
		if artist, ok := t.PrimaryArtist(); ok {
			id = artist.ID
		}

		i, ok := index[id]
		if !ok {
			i = len(buckets)
			index[id] = i
			buckets = append(buckets, &artistBucket{artistID: id, order: i})
		}
		buckets[i].tracks = append(buckets[i].tracks, t)
	}

	out := make([]models.Track, 0, len(tracks))
	last, hasLast := "", false
	for len(buckets) > 0 {
		sort.Slice(buckets, func(i, j int) bool {
			if len(buckets[i].tracks) != len(buckets[j].tracks) {
				return len(buckets[i].tracks) > len(buckets[j].tracks)
			}
			return buckets[i].order < buckets[j].order
		})

		pick := 0
		for i, b := range buckets {
			if !hasLast || b.artistID != last {
				pick = i
				break
			}
		}

		b := buckets[pick]
		out = append(out, b.tracks[0])
		b.tracks = b.tracks[1:]
		last, hasLast = b.artistID, true

		if len(b.tracks) == 0 {
			buckets = append(buckets[:pick], buckets[pick+1:]...)
		}
	}
	return out
}

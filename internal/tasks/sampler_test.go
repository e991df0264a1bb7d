package tasks

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/desertthunder/freshweekly/internal/models"
	tu "github.com/desertthunder/freshweekly/internal/testing"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestWeightedSample(t *testing.T) {
	entries := make([]WeightedEntry, 10)
	for i := range entries {
		entries[i] = WeightedEntry{ID: string(rune('a' + i)), Weight: float64(i + 1)}
	}

	t.Run("never duplicates and respects count", func(t *testing.T) {
		tc := []struct {
			count int
			want  int
		}{
			{count: 0, want: 0},
			{count: 1, want: 1},
			{count: 5, want: 5},
			{count: 10, want: 10},
			{count: 15, want: 10},
		}

		rng := newRand()
		for _, tt := range tc {
			for range 50 {
				got := WeightedSample(entries, tt.count, 2.0, rng)
				if len(got) != tt.want {
					t.Fatalf("count %d: expected %d ids, got %d", tt.count, tt.want, len(got))
				}

				seen := make(map[string]bool)
				for _, id := range got {
					if seen[id] {
						t.Fatalf("count %d: duplicate id %s in %v", tt.count, id, got)
					}
					seen[id] = true
				}
			}
		}
	})

	t.Run("ignores non-positive weights", func(t *testing.T) {
		input := []WeightedEntry{{ID: "a", Weight: 1}, {ID: "zero", Weight: 0}, {ID: "neg", Weight: -3}}
		got := WeightedSample(input, 3, 1.0, newRand())
		if !slices.Equal(got, []string{"a"}) {
			t.Errorf("expected only a, got %v", got)
		}
	})

	t.Run("heavy entry drawn first", func(t *testing.T) {
		input := []WeightedEntry{{ID: "heavy", Weight: 100}}
		for i := range 10 {
			input = append(input, WeightedEntry{ID: string(rune('a' + i)), Weight: 1})
		}

		tc := []struct {
			name string
			bias float64
			min  float64
		}{
			{name: "proportional", bias: 1.0, min: 0.88},
			{name: "sharpened", bias: 2.0, min: 0.98},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				rng := newRand()
				trials, hits := 2000, 0
				for range trials {
					if WeightedSample(input, 1, tt.bias, rng)[0] == "heavy" {
						hits++
					}
				}
				if rate := float64(hits) / float64(trials); rate < tt.min {
					t.Errorf("expected heavy entry first in at least %.2f of draws, got %.3f", tt.min, rate)
				}
			})
		}
	})

	t.Run("deterministic with a seeded source", func(t *testing.T) {
		a := WeightedSample(entries, 5, 1.5, newRand())
		b := WeightedSample(entries, 5, 1.5, newRand())
		if !slices.Equal(a, b) {
			t.Errorf("expected identical draws, got %v and %v", a, b)
		}
	})

	t.Run("count above population returns everyone", func(t *testing.T) {
		input := []WeightedEntry{{ID: "A", Weight: 5}, {ID: "B", Weight: 3}, {ID: "C", Weight: 1}}
		for _, bias := range []float64{1.0, 3.0} {
			got := WeightedSample(input, 8, bias, newRand())
			slices.Sort(got)
			if !slices.Equal(got, []string{"A", "B", "C"}) {
				t.Errorf("bias %.1f: expected all three artists, got %v", bias, got)
			}
		}
	})
}

func TestArtistWeights(t *testing.T) {
	tracks := []models.Track{
		tu.Track("1", "B"),
		tu.Track("2", "A", "B"),
		tu.Track("3", "B"),
		tu.Track("4"),
		{ID: "5", URI: "spotify:track:5", Artists: []models.Artist{{ID: "", Name: "Unknown"}}},
		tu.Track("6", "A"),
	}

	got := ArtistWeights(tracks)
	want := []WeightedEntry{{ID: "B", Weight: 2}, {ID: "A", Weight: 2}}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := ArtistWeights([]models.Track{tu.Track("x")}); len(got) != 0 {
		t.Errorf("expected no weights for artistless tracks, got %v", got)
	}
}

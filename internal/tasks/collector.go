package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/desertthunder/freshweekly/internal/models"
	"golang.org/x/sync/errgroup"
)

// AlbumSource is the part of the catalog the [Collector] reads from.
type AlbumSource interface {
	ArtistAlbums(ctx context.Context, artistID, market string) ([]models.AlbumRef, error)
	AlbumTracks(ctx context.Context, albumID string) ([]models.Track, error)
}

// CollectorOptions bounds how much of each artist's catalog is sampled.
type CollectorOptions struct {
	Market          string
	AlbumsPerArtist int // albums kept per requested artist
	TracksPerAlbum  int // tracks kept per sampled album
	Concurrency     int // in-flight catalog calls
	Rand            *rand.Rand
}

const (
	defaultAlbumsPerArtist = 4
	defaultTracksPerAlbum  = 6
	defaultConcurrency     = 8
)

// Collector expands artist ids into a shuffled pool of candidate tracks.
type Collector struct {
	source AlbumSource
	opts   CollectorOptions
}

// NewCollector creates a [Collector], filling unset budgets with their defaults.
func NewCollector(source AlbumSource, opts CollectorOptions) *Collector {
	if opts.AlbumsPerArtist <= 0 {
		opts.AlbumsPerArtist = defaultAlbumsPerArtist
	}
	if opts.TracksPerAlbum <= 0 {
		opts.TracksPerAlbum = defaultTracksPerAlbum
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Collector{source: source, opts: opts}
}

// Collect fetches the albums of every artist concurrently, samples at most
// len(artistIDs)*AlbumsPerArtist of them, then fetches and samples up to TracksPerAlbum
// tracks from each.
//
// Any failed fetch aborts the whole call. Randomness is applied only after each fan-out joins.
func (c *Collector) Collect(ctx context.Context, artistIDs []string) ([]models.Track, error) {
	if len(artistIDs) == 0 {
		return nil, nil
	}

	discographies := make([][]models.AlbumRef, len(artistIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, id := range artistIDs {
		g.Go(func() error {
			albums, err := c.source.ArtistAlbums(gctx, id, c.opts.Market)
			if err != nil {
				return fmt.Errorf("albums for artist %s: %w", id, err)
			}
			discographies[i] = albums
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var albumIDs []string
	for _, albums := range discographies {
		for _, a := range albums {
			albumIDs = append(albumIDs, a.ID)
		}
	}
	shuffle(c.opts.Rand, albumIDs)
	if budget := len(artistIDs) * c.opts.AlbumsPerArtist; len(albumIDs) > budget {
		albumIDs = albumIDs[:budget]
	}

	listings := make([][]models.Track, len(albumIDs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, id := range albumIDs {
		g.Go(func() error {
			tracks, err := c.source.AlbumTracks(gctx, id)
			if err != nil {
				return fmt.Errorf("tracks for album %s: %w", id, err)
			}
			listings[i] = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pool []models.Track
	for _, tracks := range listings {
		tracks = slices.Clone(tracks)
		shuffle(c.opts.Rand, tracks)
		pool = append(pool, tracks[:min(len(tracks), c.opts.TracksPerAlbum)]...)
	}
	return pool, nil
}

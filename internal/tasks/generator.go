package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/services"
	"github.com/desertthunder/freshweekly/internal/shared"
	"golang.org/x/sync/errgroup"
)

// PlaylistDescription is set on every playlist the generator creates.
const PlaylistDescription = "Built by Fresh Weekly Builder. Bias-aware picks from your playlist."

// GenerateConfig holds the per-run settings chosen by the user.
type GenerateConfig struct {
	SourcePlaylistID   string
	TargetTrackCount   int     // defaults to 30
	BiasExponent       float64 // defaults to 1.0, clamped to [1, 3]
	MaxTracksPerArtist int     // defaults to 2
	PlaylistName       string  // defaults to "Fresh Weekly"
	Private            bool    // only applies to newly created playlists
}

func (c GenerateConfig) withDefaults() GenerateConfig {
	if c.TargetTrackCount <= 0 {
		c.TargetTrackCount = 30
	}
	if c.BiasExponent == 0 {
		c.BiasExponent = shared.MinBias
	}
	c.BiasExponent = min(max(c.BiasExponent, shared.MinBias), shared.MaxBias)
	if c.MaxTracksPerArtist <= 0 {
		c.MaxTracksPerArtist = 2
	}
	c.PlaylistName = shared.PlaylistNameOrDefault(c.PlaylistName)
	return c
}

// GeneratorOptions holds the sampling budgets and collaborators of a [Generator].
type GeneratorOptions struct {
	SeedArtists         int
	AlbumsPerArtist     int
	TracksPerAlbum      int
	BatchSize           int
	SourceTrackLimit    int
	NeighborSearchLimit int
	NeighborTrackLimit  int
	Concurrency         int
	DefaultMarket       string

	Rand     *rand.Rand
	Logger   *log.Logger
	Recorder RunRecorder
}

// DefaultGeneratorOptions returns the stock sampling budgets.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		SeedArtists:         8,
		AlbumsPerArtist:     defaultAlbumsPerArtist,
		TracksPerAlbum:      defaultTracksPerAlbum,
		BatchSize:           3,
		SourceTrackLimit:    300,
		NeighborSearchLimit: 3,
		NeighborTrackLimit:  50,
		Concurrency:         defaultConcurrency,
		DefaultMarket:       "US",
	}
}

// OptionsFromConfig maps the [generator] and [client] config sections onto [GeneratorOptions].
func OptionsFromConfig(g shared.GeneratorConfig, c shared.ClientConfig) GeneratorOptions {
	opts := DefaultGeneratorOptions()
	setPositive(&opts.SeedArtists, g.SeedArtists)
	setPositive(&opts.AlbumsPerArtist, g.AlbumsPerArtist)
	setPositive(&opts.TracksPerAlbum, g.TracksPerAlbum)
	setPositive(&opts.BatchSize, g.BatchSize)
	setPositive(&opts.SourceTrackLimit, g.SourceTrackLimit)
	setPositive(&opts.NeighborSearchLimit, g.NeighborSearchLimit)
	setPositive(&opts.NeighborTrackLimit, g.NeighborTrackLimit)
	setPositive(&opts.Concurrency, c.Concurrency)
	if g.DefaultMarket != "" {
		opts.DefaultMarket = g.DefaultMarket
	}
	return opts
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// RunRecorder records the start and outcome of each run. Failures are logged and never abort a run.
type RunRecorder interface {
	// RecordStart stores a running entry and returns its id.
	RecordStart(ctx context.Context, cfg GenerateConfig) (string, error)
	// RecordFinish marks the entry as succeeded or failed.
	RecordFinish(ctx context.Context, runID string, result *GenerationResult, runErr error) error
}

// TierStats summarizes one discovery tier of a run.
type TierStats struct {
	Tier       Tier `json:"tier"`
	Artists    int  `json:"artists"`
	Batches    int  `json:"batches"`
	Candidates int  `json:"candidates"`
	Accepted   int  `json:"accepted"`
}

// GenerationResult is the outcome of a successful run.
type GenerationResult struct {
	RunID            string          `json:"run_id"`
	SourcePlaylistID string          `json:"source_playlist_id"`
	PlaylistID       string          `json:"playlist_id"`
	PlaylistName     string          `json:"playlist_name"`
	Reused           bool            `json:"reused"`
	Market           string          `json:"market"`
	Requested        int             `json:"requested"`
	SourceTracks     int             `json:"source_tracks"`
	SeedArtists      []models.Artist `json:"seed_artists"`
	Tiers            []TierStats     `json:"tiers"`
	Tracks           []models.Track  `json:"tracks"`
	Duration         time.Duration   `json:"duration"`
}

// Generator builds playlists from an inspiration playlist.
//
// A Generator runs one generation at a time; Generate returns [shared.ErrRunInProgress] while busy.
type Generator struct {
	catalog services.Catalog
	opts    GeneratorOptions
	rng     *rand.Rand
	logger  *log.Logger

	running atomic.Bool
	mu      sync.Mutex
	state   State
}

// NewGenerator creates a [Generator] over the given catalog.
func NewGenerator(catalog services.Catalog, opts GeneratorOptions) *Generator {
	defaults := DefaultGeneratorOptions()
	setPositive(&defaults.SeedArtists, opts.SeedArtists)
	setPositive(&defaults.AlbumsPerArtist, opts.AlbumsPerArtist)
	setPositive(&defaults.TracksPerAlbum, opts.TracksPerAlbum)
	setPositive(&defaults.BatchSize, opts.BatchSize)
	setPositive(&defaults.SourceTrackLimit, opts.SourceTrackLimit)
	setPositive(&defaults.NeighborSearchLimit, opts.NeighborSearchLimit)
	setPositive(&defaults.NeighborTrackLimit, opts.NeighborTrackLimit)
	setPositive(&defaults.Concurrency, opts.Concurrency)
	if opts.DefaultMarket != "" {
		defaults.DefaultMarket = opts.DefaultMarket
	}
	defaults.Recorder = opts.Recorder

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	return &Generator{catalog: catalog, opts: defaults, rng: rng, logger: logger, state: Idle}
}

// State returns the state of the current or most recent run.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Generator) advance(to State, progress chan<- ProgressUpdate, update ProgressUpdate) error {
	g.mu.Lock()
	from := g.state
	if !canTransition(from, to) {
		g.mu.Unlock()
		return transitionError(from, to)
	}
	g.state = to
	g.mu.Unlock()

	g.logger.Info("generation phase", "state", to, "message", update.Message)
	sendProgress(progress, update)
	return nil
}

func (g *Generator) fail(progress chan<- ProgressUpdate, err error) error {
	if advanceErr := g.advance(Errored, progress, erroredUpdate(err)); advanceErr != nil {
		g.logger.Warn("failed to record error state", "error", advanceErr)
	}
	g.logger.Error("generation failed", "error", err)
	return err
}

// run holds the state owned by a single generation.
type run struct {
	cfg        GenerateConfig
	user       *models.User
	market     string
	weights    []WeightedEntry
	artists    map[string]models.Artist
	seeds      []string
	acc        *Accumulator
	collector  *Collector
	progress   chan<- ProgressUpdate
	result     *GenerationResult
	sourceURIs []string
}

// Generate runs the full pipeline: fetch the source, sample seeds, collect the discovery tiers
// until the target is met, then interleave and write the playlist.
//
// progress receives an update on every transition; sends never block.
func (g *Generator) Generate(ctx context.Context, cfg GenerateConfig, progress chan<- ProgressUpdate) (result *GenerationResult, err error) {
	if g.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(cfg.SourcePlaylistID) == "" {
		return nil, fmt.Errorf("%w: source playlist is required", shared.ErrMissingArgument)
	}
	if !g.running.CompareAndSwap(false, true) {
		return nil, shared.ErrRunInProgress
	}
	defer g.running.Store(false)

	started := time.Now()
	cfg = cfg.withDefaults()
	r := &run{
		cfg:      cfg,
		progress: progress,
		result: &GenerationResult{
			SourcePlaylistID: cfg.SourcePlaylistID,
			PlaylistName:     cfg.PlaylistName,
			Requested:        cfg.TargetTrackCount,
		},
	}

	r.result.RunID = g.recordStart(ctx, cfg)
	defer func() {
		if err != nil {
			err = g.fail(progress, err)
			g.recordFinish(ctx, r.result.RunID, nil, err)
			result = nil
			return
		}
		g.recordFinish(ctx, r.result.RunID, result, nil)
	}()

	if err := g.fetchSource(ctx, r); err != nil {
		return nil, err
	}
	if err := g.sampleSeeds(r); err != nil {
		return nil, err
	}
	if err := g.collectTiers(ctx, r); err != nil {
		return nil, err
	}
	if err := g.write(ctx, r); err != nil {
		return nil, err
	}

	r.result.Duration = time.Since(started)
	if err := g.advance(Done, progress, doneUpdate(r.result)); err != nil {
		return nil, err
	}
	g.logger.Info("generation complete", "playlist", r.result.PlaylistID, "tracks", len(r.result.Tracks), "reused", r.result.Reused)
	return r.result, nil
}

func (g *Generator) fetchSource(ctx context.Context, r *run) error {
	if err := g.advance(FetchingSource, r.progress, fetchingSourceUpdate()); err != nil {
		return err
	}

	user, err := g.catalog.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}
	r.user = user
	r.market = user.Country
	if r.market == "" {
		r.market = g.opts.DefaultMarket
	}
	r.result.Market = r.market

	tracks, err := g.catalog.PlaylistTracks(ctx, r.cfg.SourcePlaylistID, g.opts.SourceTrackLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch source playlist: %w", err)
	}
	r.result.SourceTracks = len(tracks)

	r.weights, r.artists = artistIndex(tracks)
	if len(r.weights) == 0 {
		return fmt.Errorf("%w: %d tracks, none with artist metadata", ErrEmptySource, len(tracks))
	}

	r.sourceURIs = models.URIs(tracks)
	r.acc = NewAccumulator(r.cfg.TargetTrackCount, r.cfg.MaxTracksPerArtist, r.sourceURIs, g.rng)
	r.collector = NewCollector(g.catalog, CollectorOptions{
		Market:          r.market,
		AlbumsPerArtist: g.opts.AlbumsPerArtist,
		TracksPerAlbum:  g.opts.TracksPerAlbum,
		Concurrency:     g.opts.Concurrency,
		Rand:            g.rng,
	})

	g.logger.Debug("source loaded", "tracks", len(tracks), "artists", len(r.weights), "market", r.market)
	return nil
}

func (g *Generator) sampleSeeds(r *run) error {
	if err := g.advance(SamplingSeeds, r.progress, samplingSeedsUpdate(len(r.weights))); err != nil {
		return err
	}

	count := min(g.opts.SeedArtists, len(r.weights))
	r.seeds = WeightedSample(r.weights, count, r.cfg.BiasExponent, g.rng)
	for _, id := range r.seeds {
		r.result.SeedArtists = append(r.result.SeedArtists, r.artists[id])
	}

	g.logger.Debug("seeds sampled", "seeds", r.seeds, "bias", r.cfg.BiasExponent)
	return nil
}

func (g *Generator) collectTiers(ctx context.Context, r *run) error {
	if err := g.advance(CollectingSeedTier, r.progress, seedTierUpdate(r.seeds)); err != nil {
		return err
	}
	if err := g.collectBatches(ctx, r, SeedTier, CollectingSeedTier, [][]string{r.seeds}); err != nil {
		return err
	}

	if !r.acc.Satisfied() {
		if err := g.advance(CollectingNeighborTier, r.progress, neighborTierUpdate()); err != nil {
			return err
		}

		neighbors, err := g.neighborArtists(ctx, r)
		if err != nil {
			return &CollectorFetchError{Tier: NeighborTier, Err: err}
		}
		if err := g.collectBatches(ctx, r, NeighborTier, CollectingNeighborTier, shared.Chunk(neighbors, g.opts.BatchSize)); err != nil {
			return err
		}
	}

	if !r.acc.Satisfied() {
		if err := g.advance(CollectingFallbackTier, r.progress, fallbackTierUpdate()); err != nil {
			return err
		}

		remaining := g.remainingArtists(r)
		if err := g.collectBatches(ctx, r, FallbackTier, CollectingFallbackTier, shared.Chunk(remaining, g.opts.BatchSize)); err != nil {
			return err
		}
	}

	if r.acc.Len() == 0 {
		return ErrNoCandidates
	}
	return nil
}

// collectBatches feeds each batch through the collector, stopping once the accumulator is satisfied.
func (g *Generator) collectBatches(ctx context.Context, r *run, tier Tier, state State, batches [][]string) error {
	stats := TierStats{Tier: tier}
	defer func() { r.result.Tiers = append(r.result.Tiers, stats) }()

	for i, batch := range batches {
		if r.acc.Satisfied() {
			break
		}

		candidates, err := r.collector.Collect(ctx, batch)
		if err != nil {
			return &CollectorFetchError{Tier: tier, Err: err}
		}

		accepted := r.acc.Add(candidates)
		stats.Artists += len(batch)
		stats.Batches++
		stats.Candidates += len(candidates)
		stats.Accepted += accepted

		g.logger.Debug("batch collected", "tier", tier, "artists", len(batch), "candidates", len(candidates), "accepted", accepted, "total", r.acc.Len())
		sendProgress(r.progress, batchUpdate(state, i+1, len(batches), TierProgress{
			Tier:       tier,
			Artists:    batch,
			Candidates: len(candidates),
			Accepted:   accepted,
			Total:      r.acc.Len(),
		}))
	}
	return nil
}

// neighborArtists searches playlists featuring each seed artist and gathers every credited
// artist on them that is not a seed, shuffled and de-duplicated.
func (g *Generator) neighborArtists(ctx context.Context, r *run) ([]string, error) {
	found := make([][]string, len(r.seeds))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)

	for i, seedID := range r.seeds {
		name := r.artists[seedID].Name
		query := neighborQuery(name)
		if query == "" {
			continue
		}

		eg.Go(func() error {
			playlists, err := g.catalog.SearchPlaylists(gctx, query, g.opts.NeighborSearchLimit)
			if err != nil {
				return fmt.Errorf("search playlists for %q: %w", name, err)
			}

			var ids []string
			for _, p := range playlists {
				if p.ID == r.cfg.SourcePlaylistID {
					continue
				}
				tracks, err := g.catalog.PlaylistTracks(gctx, p.ID, g.opts.NeighborTrackLimit)
				if err != nil {
					return fmt.Errorf("tracks for neighbor playlist %s: %w", p.ID, err)
				}
				for _, t := range tracks {
					for _, a := range t.Artists {
						ids = append(ids, a.ID)
					}
				}
			}
			found[i] = ids
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	seeds := make(map[string]struct{}, len(r.seeds))
	for _, id := range r.seeds {
		seeds[id] = struct{}{}
	}

	var all []string
	for _, ids := range found {
		all = append(all, ids...)
	}
	shuffle(g.rng, all)

	seen := make(map[string]struct{}, len(all))
	neighbors := make([]string, 0, len(all))
	for _, id := range all {
		if id == "" {
			continue
		}
		if _, ok := seeds[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		neighbors = append(neighbors, id)
	}

	g.logger.Debug("neighbors found", "artists", len(neighbors))
	return neighbors, nil
}

// neighborQuery builds the artist search for a seed artist name.
func neighborQuery(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
	if name == "" {
		return ""
	}
	return fmt.Sprintf(`artist:"%s"`, name)
}

// remainingArtists returns the shuffled source artists that were not seeds.
func (g *Generator) remainingArtists(r *run) []string {
	var remaining []string
	for _, e := range r.weights {
		if !slices.Contains(r.seeds, e.ID) {
			remaining = append(remaining, e.ID)
		}
	}
	shuffle(g.rng, remaining)
	return remaining
}

func (g *Generator) write(ctx context.Context, r *run) error {
	tracks := Interleave(r.acc.Result())

	playlists, err := g.catalog.AllPlaylists(ctx)
	if err != nil {
		g.advanceQuietly(Writing, r.progress, resolvePlaylistUpdate(false))
		return &PlaylistWriteError{Op: "lookup", Err: err}
	}

	existing := findPlaylist(playlists, r.cfg.PlaylistName, r.user.ID)
	if err := g.advance(Writing, r.progress, resolvePlaylistUpdate(existing != nil)); err != nil {
		return err
	}

	target := existing
	if target == nil {
		created, err := g.catalog.CreatePlaylist(ctx, r.user.ID, r.cfg.PlaylistName, PlaylistDescription, !r.cfg.Private)
		if err != nil {
			return &PlaylistWriteError{Op: "create", Err: err}
		}
		target = created
	}

	r.result.PlaylistID = target.ID
	r.result.PlaylistName = target.Name
	r.result.Reused = existing != nil
	if r.result.PlaylistName == "" {
		r.result.PlaylistName = r.cfg.PlaylistName
	}

	chunks := shared.Chunk(models.URIs(tracks), services.MaxURIsPerWrite)
	for i, chunk := range chunks {
		sendProgress(r.progress, savingTracksUpdate(i+1, len(chunks)))

		op, write := "add", g.catalog.AddTracksToPlaylist
		if i == 0 {
			op, write = "replace", g.catalog.ReplacePlaylistTracks
		}
		if err := write(ctx, target.ID, chunk); err != nil {
			return &PlaylistWriteError{PlaylistID: target.ID, Op: op, Err: err}
		}
	}

	r.result.Tracks = tracks
	return nil
}

// advanceQuietly enters state so a following failure is attributed to it.
func (g *Generator) advanceQuietly(to State, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if err := g.advance(to, progress, update); err != nil {
		g.logger.Warn("unexpected transition", "error", err)
	}
}

// findPlaylist matches name case-insensitively among playlists the user owns.
//
// Unlike a plain name match, followed playlists owned by someone else are skipped so a
// same-name playlist the user cannot modify leads to a new playlist instead of a failed write.
// A playlist with no owner id, or an unknown current user, still matches by name alone.
func findPlaylist(playlists []models.Playlist, name, ownerID string) *models.Playlist {
	for i, p := range playlists {
		if p.OwnerID != "" && ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return &playlists[i]
		}
	}
	return nil
}

func (g *Generator) recordStart(ctx context.Context, cfg GenerateConfig) string {
	if g.opts.Recorder == nil {
		return shared.GenerateID()
	}

	id, err := g.opts.Recorder.RecordStart(ctx, cfg)
	if err != nil || id == "" {
		g.logger.Warn("failed to record run start", "error", err)
		return shared.GenerateID()
	}
	return id
}

func (g *Generator) recordFinish(ctx context.Context, runID string, result *GenerationResult, runErr error) {
	if g.opts.Recorder == nil {
		return
	}
	if err := g.opts.Recorder.RecordFinish(context.WithoutCancel(ctx), runID, result, runErr); err != nil && !errors.Is(err, context.Canceled) {
		g.logger.Warn("failed to record run finish", "run", runID, "error", err)
	}
}

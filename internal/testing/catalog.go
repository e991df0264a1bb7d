package testing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/freshweekly/internal/models"
)

// WriteCall records a playlist write made against a [FakeCatalog].
type WriteCall struct {
	Op         string // create, replace, add
	PlaylistID string
	URIs       []string
}

// FakeCatalog is an in-memory catalog. It is safe for concurrent use.
//
// Tracks is keyed by playlist id, Albums by artist id, AlbumListings by album id and Searches by query.
// Errors are keyed by method name ("ArtistAlbums") or method and argument ("ArtistAlbums:a1").
type FakeCatalog struct {
	User          *models.User
	Playlists     []models.Playlist
	Tracks        map[string][]models.Track
	Albums        map[string][]models.AlbumRef
	AlbumListings map[string][]models.Track
	Searches      map[string][]models.Playlist
	Errors        map[string]error

	mu      sync.Mutex
	calls   []string
	writes  []WriteCall
	created int
}

// NewFakeCatalog returns an empty catalog for user "user1" in market "US".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		User:          &models.User{ID: "user1", DisplayName: "Test User", Country: "US"},
		Tracks:        make(map[string][]models.Track),
		Albums:        make(map[string][]models.AlbumRef),
		AlbumListings: make(map[string][]models.Track),
		Searches:      make(map[string][]models.Playlist),
		Errors:        make(map[string]error),
	}
}

func (f *FakeCatalog) record(method, arg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, method+":"+arg)
	if err, ok := f.Errors[method+":"+arg]; ok {
		return err
	}
	return f.Errors[method]
}

// Calls returns every call as "Method:arg" in the order they were made.
func (f *FakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount counts calls to method.
func (f *FakeCatalog) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, method+":") {
			n++
		}
	}
	return n
}

// Writes returns the create, replace and add calls in order.
func (f *FakeCatalog) Writes() []WriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes)
}

func (f *FakeCatalog) CurrentUser(ctx context.Context) (*models.User, error) {
	if err := f.record("CurrentUser", ""); err != nil {
		return nil, err
	}
	user := *f.User
	return &user, nil
}

func (f *FakeCatalog) AllPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if err := f.record("AllPlaylists", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Playlists), nil
}

func (f *FakeCatalog) PlaylistTracks(ctx context.Context, playlistID string, maxTracks int) ([]models.Track, error) {
	if err := f.record("PlaylistTracks", playlistID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks := slices.Clone(f.Tracks[playlistID])
	if maxTracks > 0 && len(tracks) > maxTracks {
		tracks = tracks[:maxTracks]
	}
	return tracks, nil
}

func (f *FakeCatalog) ArtistAlbums(ctx context.Context, artistID, market string) ([]models.AlbumRef, error) {
	if err := f.record("ArtistAlbums", artistID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Albums[artistID]), nil
}

func (f *FakeCatalog) AlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	if err := f.record("AlbumTracks", albumID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.AlbumListings[albumID]), nil
}

func (f *FakeCatalog) SearchPlaylists(ctx context.Context, query string, limit int) ([]models.Playlist, error) {
	if err := f.record("SearchPlaylists", query); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	results := slices.Clone(f.Searches[query])
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error) {
	if err := f.record("CreatePlaylist", name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created++
	p := models.Playlist{
		ID:          fmt.Sprintf("created-%d", f.created),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Public:      public,
	}
	f.Playlists = append(f.Playlists, p)
	f.writes = append(f.writes, WriteCall{Op: "create", PlaylistID: p.ID})
	return &p, nil
}

func (f *FakeCatalog) ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	return f.write("replace", "ReplacePlaylistTracks", playlistID, uris)
}

func (f *FakeCatalog) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	return f.write("add", "AddTracksToPlaylist", playlistID, uris)
}

func (f *FakeCatalog) write(op, method, playlistID string, uris []string) error {
	if len(uris) > 100 {
		return fmt.Errorf("%s: %d uris exceeds the per-request limit", method, len(uris))
	}
	if err := f.record(method, playlistID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, WriteCall{Op: op, PlaylistID: playlistID, URIs: slices.Clone(uris)})
	return nil
}

// Track builds a track whose URI derives from id, credited to the given artist ids.
func Track(id string, artistIDs ...string) models.Track {
	artists := make([]models.Artist, 0, len(artistIDs))
	for _, a := range artistIDs {
		artists = append(artists, models.Artist{ID: a, Name: "Artist " + a})
	}
	return models.Track{ID: id, URI: "spotify:track:" + id, Name: "Track " + id, Artists: artists}
}

// AddDiscography gives artistID albums with tracksPerAlbum tracks each.
func (f *FakeCatalog) AddDiscography(artistID string, albums, tracksPerAlbum int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for a := range albums {
		albumID := fmt.Sprintf("%s-album-%d", artistID, a)
		f.Albums[artistID] = append(f.Albums[artistID], models.AlbumRef{ID: albumID, Name: albumID, Type: "album"})
		for t := range tracksPerAlbum {
			f.AlbumListings[albumID] = append(f.AlbumListings[albumID], Track(fmt.Sprintf("%s-%d", albumID, t), artistID))
		}
	}
}

package tasks

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySource is returned when the source playlist has no track with a primary artist.
	ErrEmptySource = errors.New("source playlist has no usable artists")

	// ErrNoCandidates is returned when every discovery tier is exhausted without accepting a track.
	ErrNoCandidates = errors.New("no candidate tracks found")

	ErrCollectorFetch = errors.New("catalog fetch failed")
	ErrPlaylistWrite  = errors.New("playlist write failed")
)

// CollectorFetchError reports a catalog failure while collecting a discovery tier.
//
// The run is aborted and nothing is written.
type CollectorFetchError struct {
	Tier Tier
	Err  error
}

func (e *CollectorFetchError) Error() string {
	return fmt.Sprintf("%s tier: %v: %v", e.Tier, ErrCollectorFetch, e.Err)
}

func (e *CollectorFetchError) Unwrap() error { return e.Err }

func (e *CollectorFetchError) Is(target error) bool { return target == ErrCollectorFetch }

// PlaylistWriteError reports a failure resolving, creating or filling the target playlist.
//
// PlaylistID is set once the playlist exists; it is left as is without rollback.
type PlaylistWriteError struct {
	PlaylistID string
	Op         string // lookup, create, replace, add
	Err        error
}

func (e *PlaylistWriteError) Error() string {
	if e.PlaylistID == "" {
		return fmt.Sprintf("%v: %s: %v", ErrPlaylistWrite, e.Op, e.Err)
	}
	return fmt.Sprintf("%v: %s playlist %s: %v", ErrPlaylistWrite, e.Op, e.PlaylistID, e.Err)
}

func (e *PlaylistWriteError) Unwrap() error { return e.Err }

func (e *PlaylistWriteError) Is(target error) bool { return target == ErrPlaylistWrite }

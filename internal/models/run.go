package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a persisted generation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run records that a generation happened and how it ended.
//
// It stores the configuration and outcome only; generated tracks are never persisted.
type Run struct {
	id               string
	sequence         int
	sourcePlaylistID string
	playlistID       string
	playlistName     string
	requested        int
	accepted         int
	bias             float64
	maxPerArtist     int
	status           RunStatus
	errorMessage     string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

// NewRun creates a [Run] in the running state.
func NewRun(sequence int, sourcePlaylistID, playlistName string, requested int, bias float64, maxPerArtist int) *Run {
	now := time.Now()
	return &Run{
		sequence:         sequence,
		sourcePlaylistID: sourcePlaylistID,
		playlistName:     playlistName,
		requested:        requested,
		bias:             bias,
		maxPerArtist:     maxPerArtist,
		status:           RunRunning,
		createdAt:        now,
		updatedAt:        now,
	}
}

func (r *Run) ID() string               { return r.id }
func (r *Run) Sequence() int            { return r.sequence }
func (r *Run) SourcePlaylistID() string { return r.sourcePlaylistID }
func (r *Run) PlaylistID() string       { return r.playlistID }
func (r *Run) PlaylistName() string     { return r.playlistName }
func (r *Run) Requested() int           { return r.requested }
func (r *Run) Accepted() int            { return r.accepted }
func (r *Run) Bias() float64            { return r.bias }
func (r *Run) MaxPerArtist() int        { return r.maxPerArtist }
func (r *Run) Status() RunStatus        { return r.status }
func (r *Run) ErrorMessage() string     { return r.errorMessage }
func (r *Run) CreatedAt() time.Time     { return r.createdAt }
func (r *Run) UpdatedAt() time.Time     { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time    { return r.deletedAt }

func (r *Run) SetID(id string)             { r.id = id }
func (r *Run) SetSequence(seq int)         { r.sequence = seq }
func (r *Run) SetCreatedAt(t time.Time)    { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time)   { r.deletedAt = t }
func (r *Run) SetPlaylistName(name string) { r.playlistName = name }

// Succeed marks the run as finished with the written playlist.
func (r *Run) Succeed(playlistID, playlistName string, accepted int) {
	r.status = RunSucceeded
	r.playlistID = playlistID
	r.playlistName = playlistName
	r.accepted = accepted
	r.errorMessage = ""
}

// Fail marks the run as failed with the error that ended it.
func (r *Run) Fail(err error) {
	r.status = RunFailed
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Restore sets the outcome fields when loading a run from storage.
func (r *Run) Restore(playlistID string, accepted int, status RunStatus, errorMessage string) {
	r.playlistID = playlistID
	r.accepted = accepted
	r.status = status
	r.errorMessage = errorMessage
}

// Validate checks required fields and status values.
func (r *Run) Validate() error {
	if r.sourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	if r.requested <= 0 {
		return fmt.Errorf("requested track count must be positive, got %d", r.requested)
	}
	switch r.status {
	case RunRunning, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	return nil
}

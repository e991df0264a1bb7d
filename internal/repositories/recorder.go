package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/tasks"
)

// RunRecorder stores generation runs through a [RunRepository].
type RunRecorder struct {
	repo *RunRepository
}

// NewRunRecorder creates a recorder over repo
func NewRunRecorder(repo *RunRepository) *RunRecorder {
	return &RunRecorder{repo: repo}
}

// RecordStart inserts a running entry for cfg.
func (r *RunRecorder) RecordStart(ctx context.Context, cfg tasks.GenerateConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	run := models.NewRun(0, cfg.SourcePlaylistID, cfg.PlaylistName, cfg.TargetTrackCount, cfg.BiasExponent, cfg.MaxTracksPerArtist)
	if err := r.repo.Create(run); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.ID(), nil
}

// RecordFinish marks the run succeeded with the written playlist, or failed with runErr.
func (r *RunRecorder) RecordFinish(ctx context.Context, runID string, result *tasks.GenerationResult, runErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	run, err := r.repo.Get(runID)
	if err != nil {
		return err
	}

	if result != nil && runErr == nil {
		run.Succeed(result.PlaylistID, result.PlaylistName, len(result.Tracks))
	} else {
		run.Fail(runErr)
	}
	return r.repo.Update(run)
}

var _ tasks.RunRecorder = (*RunRecorder)(nil)

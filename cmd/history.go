package main

import (
	"context"
	"time"

	"github.com/desertthunder/freshweekly/internal/formatter"
	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/repositories"
	"github.com/urfave/cli/v3"
)

type runView struct {
	ID               string           `json:"id"`
	Sequence         int              `json:"sequence"`
	SourcePlaylistID string           `json:"source_playlist_id"`
	PlaylistID       string           `json:"playlist_id,omitempty"`
	PlaylistName     string           `json:"playlist_name"`
	Requested        int              `json:"requested"`
	Accepted         int              `json:"accepted"`
	Bias             float64          `json:"bias"`
	MaxPerArtist     int              `json:"max_per_artist"`
	Status           models.RunStatus `json:"status"`
	Error            string           `json:"error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func newRunView(run *models.Run) runView {
	return runView{
		ID:               run.ID(),
		Sequence:         run.Sequence(),
		SourcePlaylistID: run.SourcePlaylistID(),
		PlaylistID:       run.PlaylistID(),
		PlaylistName:     run.PlaylistName(),
		Requested:        run.Requested(),
		Accepted:         run.Accepted(),
		Bias:             run.Bias(),
		MaxPerArtist:     run.MaxPerArtist(),
		Status:           run.Status(),
		Error:            run.ErrorMessage(),
		CreatedAt:        run.CreatedAt(),
		UpdatedAt:        run.UpdatedAt(),
	}
}

// History prints the most recent generation runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs yet. Try 'freshweekly generate --source <playlist>'.\n")
	}

	r.writePlainHeader("Recent runs")
	_, err = r.output.Write(formatter.ExportRunsToText(runs, time.Now()))
	return err
}

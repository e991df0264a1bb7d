package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
	"github.com/desertthunder/freshweekly/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/freshweekly-tui.log"

// TUI launches the interactive playlist builder.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	settings := r.config.Generator
	defaults := tasks.GenerateConfig{
		TargetTrackCount:   settings.TrackCount,
		BiasExponent:       settings.Bias,
		MaxTracksPerArtist: settings.MaxPerArtist,
		PlaylistName:       shared.PlaylistNameOrDefault(settings.PlaylistName),
		Private:            !settings.Public,
	}

	model := ui.NewModel(ctx, catalog, r.generator(catalog, fileLogger), defaults)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if m, ok := final.(*ui.Model); ok && m.Err() != nil {
		r.logger.Error("last generation failed", "error", m.Err())
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/formatter"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Generate builds a playlist from the inspiration playlist given by --source.
//
// Unset flags fall back to the [generator] config section. Progress is logged to stderr so the
// result can be piped from stdout.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	settings := generatorSettings(r.config.Generator, cmd)
	if err := settings.Validate(); err != nil {
		return err
	}

	sourceID, err := resolveSource(ctx, catalog, cmd.String("source"))
	if err != nil {
		return err
	}

	cfg := tasks.GenerateConfig{
		SourcePlaylistID:   sourceID,
		TargetTrackCount:   settings.TrackCount,
		BiasExponent:       settings.Bias,
		MaxTracksPerArtist: settings.MaxPerArtist,
		PlaylistName:       settings.PlaylistName,
		Private:            !settings.Public,
	}

	logger := shared.WithLogger(r.logger, "source", sourceID)
	var opts []func(*tasks.GeneratorOptions)
	if cmd.IsSet("seed") {
		seed := uint64(cmd.Int("seed"))
		opts = append(opts, func(o *tasks.GeneratorOptions) { o.Rand = rand.New(rand.NewPCG(seed, seed)) })
	}
	generator := r.generator(catalog, logger, opts...)

	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logProgress(logger, progress)
	}()

	result, err := generator.Generate(ctx, cfg, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(result, format, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ %d tracks saved to '%s', result written to %s\n", len(result.Tracks), result.PlaylistName, written)
	}
	return formatter.Write(r.output, result, format)
}

// generatorSettings overlays the flags the user set on the configured defaults.
func generatorSettings(defaults shared.GeneratorConfig, cmd *cli.Command) shared.GeneratorConfig {
	settings := defaults
	if cmd.IsSet("count") {
		settings.TrackCount = cmd.Int("count")
	}
	if cmd.IsSet("bias") {
		settings.Bias = cmd.Float("bias")
	}
	if cmd.IsSet("max-per-artist") {
		settings.MaxPerArtist = cmd.Int("max-per-artist")
	}
	if cmd.IsSet("name") {
		settings.PlaylistName = cmd.String("name")
	}
	if cmd.Bool("private") {
		settings.Public = false
	}
	settings.PlaylistName = shared.PlaylistNameOrDefault(settings.PlaylistName)
	return settings
}

func logProgress(logger *log.Logger, progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		if update.Phase == tasks.Errored {
			continue
		}
		if update.Total > 1 {
			logger.Info(update.Message, "phase", update.Phase, "step", fmt.Sprintf("%d/%d", update.Step, update.Total))
			continue
		}
		logger.Info(update.Message, "phase", update.Phase)
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/services"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Playlists lists the user's playlists with an optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	playlists, err := catalog.AllPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playlists: %w", err)
	}

	if limit := cmd.Int("limit"); limit > 0 && len(playlists) > limit {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-24s %6s  %-8s %s\n", p.ID, humanize.Comma(int64(p.TrackCount)), shared.VisibilityString(p.Public), p.Name)
	}
	return nil
}

// resolveSource finds the inspiration playlist by ID or case-insensitive name.
//
// A value that matches nothing is used as an ID when it has no spaces, so playlists the
// user does not follow can still be used.
func resolveSource(ctx context.Context, catalog services.Catalog, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("%w: --source", shared.ErrMissingArgument)
	}

	playlists, err := catalog.AllPlaylists(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch playlists: %w", err)
	}

	if p := matchPlaylist(playlists, source); p != nil {
		return p.ID, nil
	}
	if strings.ContainsAny(source, " \t") {
		return "", fmt.Errorf("%w: no playlist named %q", shared.ErrPlaylistNotFound, source)
	}
	return source, nil
}

func matchPlaylist(playlists []models.Playlist, source string) *models.Playlist {
	for i := range playlists {
		if playlists[i].ID == source {
			return &playlists[i]
		}
	}
	for i := range playlists {
		if strings.EqualFold(strings.TrimSpace(playlists[i].Name), source) {
			return &playlists[i]
		}
	}
	return nil
}

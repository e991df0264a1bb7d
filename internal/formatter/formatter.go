// package formatter renders generation results and run history as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
	"github.com/dustin/go-humanize"
)

// Format selects an output renderer.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists the supported formats in flag help order.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat accepts a format name case-insensitively, with "md" as an alias for Markdown.
// An empty name selects [Text].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown, csv or json)", shared.ErrInvalidFlag, name)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}

// Render converts a generation result to the given format.
func Render(result *tasks.GenerationResult, format Format) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no result to render", shared.ErrInvalidInput)
	}

	switch format {
	case Text, "":
		return ExportToText(result)
	case Markdown:
		return ExportToMarkdown(result)
	case CSV:
		return ExportToCSV(result)
	case JSON:
		return shared.MarshalJSON(result, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToCSV converts a result to CSV with columns: Position, URI, Track, Artists, Artist ID
func ExportToCSV(result *tasks.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "URI", "Track", "Artists", "Artist ID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Tracks {
		primary, _ := track.PrimaryArtist()
		record := []string{
			strconv.Itoa(i + 1),
			track.URI,
			track.Name,
			track.ArtistNames(),
			primary.ID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a result to Markdown with a link to the playlist
func ExportToMarkdown(result *tasks.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", result.PlaylistName)
	if result.PlaylistID != "" {
		fmt.Fprintf(&buf, "[Open in Spotify](%s)\n\n", PlaylistURL(result.PlaylistID))
	}

	fmt.Fprintf(&buf, "**Tracks**: %s of %s requested\n", humanize.Comma(int64(len(result.Tracks))), humanize.Comma(int64(result.Requested)))
	fmt.Fprintf(&buf, "**Playlist**: %s\n", reuseLabel(result.Reused))
	if len(result.SeedArtists) > 0 {
		fmt.Fprintf(&buf, "**Seed artists**: %s\n", artistNames(result.SeedArtists))
	}
	buf.WriteString("\n")

	if len(result.Tiers) > 0 {
		buf.WriteString("| Tier | Artists | Candidates | Accepted |\n|---|---|---|---|\n")
		for _, tier := range result.Tiers {
			fmt.Fprintf(&buf, "| %s | %d | %s | %d |\n", tier.Tier, tier.Artists, humanize.Comma(int64(tier.Candidates)), tier.Accepted)
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Tracks\n\n")
	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistNames(), track.Name)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a result to plain text
func ExportToText(result *tasks.GenerationResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", result.PlaylistName)
	if result.PlaylistID != "" {
		fmt.Fprintf(&buf, "ID: %s (%s)\n", result.PlaylistID, reuseLabel(result.Reused))
	}
	fmt.Fprintf(&buf, "Tracks: %s of %s requested\n", humanize.Comma(int64(len(result.Tracks))), humanize.Comma(int64(result.Requested)))
	if len(result.SeedArtists) > 0 {
		fmt.Fprintf(&buf, "Seeds: %s\n", artistNames(result.SeedArtists))
	}
	if result.Duration > 0 {
		fmt.Fprintf(&buf, "Took: %s\n", result.Duration.Round(time.Millisecond))
	}
	buf.WriteString("\n")

	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistNames(), track.Name)
	}

	return buf.Bytes(), nil
}

// ExportRunsToText renders run history, newest first, with times relative to now
func ExportRunsToText(runs []*models.Run, now time.Time) []byte {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded yet.\n")
		return buf.Bytes()
	}

	for _, run := range runs {
		fmt.Fprintf(&buf, "#%d %s  %s\n", run.Sequence(), run.Status(), humanize.RelTime(run.CreatedAt(), now, "ago", "from now"))
		fmt.Fprintf(&buf, "   Source: %s\n", run.SourcePlaylistID())
		fmt.Fprintf(&buf, "   Target: %s", run.PlaylistName())
		if run.PlaylistID() != "" {
			fmt.Fprintf(&buf, " (%s)", run.PlaylistID())
		}
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "   Tracks: %d/%d  bias %s  cap %d\n", run.Accepted(), run.Requested(), humanize.Ftoa(run.Bias()), run.MaxPerArtist())
		if run.ErrorMessage() != "" {
			fmt.Fprintf(&buf, "   Error: %s\n", run.ErrorMessage())
		}
	}

	return buf.Bytes()
}

// Write renders result and writes it to w
func Write(w io.Writer, result *tasks.GenerationResult, format Format) error {
	data, err := Render(result, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders result to a file.
//
// Defaults to {playlist ID}.{extension} as the filename.
func WriteExport(result *tasks.GenerationResult, format Format, path string) (string, error) {
	data, err := Render(result, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		base := result.PlaylistID
		if base == "" {
			base = "freshweekly"
		}
		path = base + "." + format.Extension()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// PlaylistURL returns the web player link for a playlist id
func PlaylistURL(id string) string {
	return "https://open.spotify.com/playlist/" + id
}

func reuseLabel(reused bool) string {
	if reused {
		return "updated existing"
	}
	return "created"
}

func artistNames(artists []models.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/shared"
	tu "github.com/desertthunder/freshweekly/internal/testing"
)

func testConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	return config
}

func testCatalog() *tu.FakeCatalog {
	catalog := tu.NewFakeCatalog()
	catalog.Playlists = []models.Playlist{
		{ID: "src", Name: "Road Trip", OwnerID: "user1", TrackCount: 3, Public: true},
		{ID: "other", Name: "Focus", OwnerID: "user1", TrackCount: 1200},
	}
	catalog.Tracks["src"] = []models.Track{tu.Track("s1", "A"), tu.Track("s2", "A"), tu.Track("s3", "B")}
	catalog.AddDiscography("A", 2, 4)
	catalog.AddDiscography("B", 2, 4)
	return catalog
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"freshweekly"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := testConfig()
			logger := shared.NopLogger()
			output := &bytes.Buffer{}
			catalog := tu.NewFakeCatalog()

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, Catalog: catalog})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil logger and output uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected stdout output")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()
		var names []string
		for _, c := range commands {
			names = append(names, c.Name)
		}
		want := "auth playlists generate history setup tui"
		if got := strings.Join(names, " "); got != want {
			t.Errorf("expected commands %q, got %q", want, got)
		}
	})

	t.Run("writeJSON reports write failures", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := r.writeJSON(map[string]int{"a": 1}, false); err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected output error, got %v", err)
		}

		r = NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, 0, &bytes.Buffer{})})
		if err := r.writeJSON(map[string]int{"a": 1}, true); err == nil || !strings.Contains(err.Error(), "failed to write newline") {
			t.Errorf("expected newline error, got %v", err)
		}
	})

	t.Run("Before loads the config file and log level", func(t *testing.T) {
		config := testConfig()
		config.Generator.PlaylistName = "From File"
		path := tu.WriteConfig(t, config)
		logger := shared.NopLogger()
		r := NewRunner(RunnerOpts{Catalog: tu.NewFakeCatalog(), Logger: logger, Output: &bytes.Buffer{}})

		if err := run(t, r, "--config", path, "--verbose", "auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.configPath != path || r.config.Generator.PlaylistName != "From File" {
			t.Errorf("expected config from %s, got %q", path, r.config.Generator.PlaylistName)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})

	t.Run("commands without a token", func(t *testing.T) {
		for _, args := range [][]string{
			{"playlists"},
			{"generate", "--source", "src"},
			{"tui"},
		} {
			t.Run(args[0], func(t *testing.T) {
				r := NewRunner(RunnerOpts{Config: testConfig(), Logger: shared.NopLogger(), Output: &bytes.Buffer{}})
				if err := run(t, r, args...); !errors.Is(err, shared.ErrNotAuthenticated) {
					t.Errorf("expected ErrNotAuthenticated, got %v", err)
				}
			})
		}
	})
}

func TestPlaylists(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: testCatalog(), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "playlists"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := output.String()
		for _, want := range []string{"Playlists (2)", "Road Trip", "1,200", "Private"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json with limit", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: testCatalog(), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "playlists", "--json", "--limit", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var playlists []models.Playlist
		if err := json.Unmarshal(output.Bytes(), &playlists); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(playlists) != 1 || playlists[0].ID != "src" {
			t.Errorf("expected only the first playlist, got %+v", playlists)
		}
	})
}

func TestGenerate(t *testing.T) {
	t.Run("resolves the source by name and records the run", func(t *testing.T) {
		output := &bytes.Buffer{}
		catalog := testCatalog()
		db := testDB(t)
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: catalog, DB: db, Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "generate", "--source", "road trip", "--seed", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := output.String()
		for _, want := range []string{"Playlist: Fresh Weekly", "Tracks: 4 of 30 requested"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if got := catalog.CallCount("PlaylistTracks"); got < 1 {
			t.Errorf("expected the source playlist to be read")
		}

		writes := catalog.Writes()
		if len(writes) != 2 || writes[0].Op != "create" || writes[1].Op != "replace" || len(writes[1].URIs) != 4 {
			t.Fatalf("expected create then replace with 4 tracks, got %+v", writes)
		}

		output.Reset()
		if err := run(t, r, "history"); err != nil {
			t.Fatalf("unexpected history error: %v", err)
		}
		out = output.String()
		for _, want := range []string{"#1 succeeded", "Source: src", "Tracks: 4/30"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected history to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("flags override config and private applies", func(t *testing.T) {
		output := &bytes.Buffer{}
		catalog := testCatalog()
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: catalog, DB: testDB(t), Logger: shared.NopLogger(), Output: output})

		err := run(t, r, "generate", "--source", "src", "--count", "10", "--max-per-artist", "1",
			"--name", "  Weekend  ", "--private", "--format", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result struct {
			PlaylistName string `json:"playlist_name"`
			Requested    int    `json:"requested"`
			Tracks       []any  `json:"tracks"`
		}
		if err := json.Unmarshal(output.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, output.String())
		}
		if result.PlaylistName != "Weekend" || result.Requested != 10 || len(result.Tracks) != 2 {
			t.Errorf("unexpected result %+v", result)
		}

		created := catalog.Playlists[len(catalog.Playlists)-1]
		if created.Name != "Weekend" || created.Public {
			t.Errorf("expected private playlist 'Weekend', got %+v", created)
		}
	})

	t.Run("writes the result to a file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "result.md")
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: testCatalog(), DB: testDB(t), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "generate", "--source", "src", "--format", "md", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Fresh Weekly") {
			t.Errorf("expected markdown export, got:\n%s", content)
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected confirmation naming %s, got %q", path, output.String())
		}
	})

	t.Run("rejects invalid input before calling the catalog", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"count too small", []string{"--count", "5"}, shared.ErrInvalidConfig},
			{"bias too large", []string{"--bias", "3.5"}, shared.ErrInvalidConfig},
			{"cap too large", []string{"--max-per-artist", "9"}, shared.ErrInvalidConfig},
			{"unknown format", []string{"--format", "xml"}, shared.ErrInvalidFlag},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				catalog := testCatalog()
				r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: catalog, DB: testDB(t), Logger: shared.NopLogger(), Output: &bytes.Buffer{}})

				err := run(t, r, append([]string{"generate", "--source", "src"}, tt.args...)...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if calls := catalog.Calls(); len(calls) != 0 {
					t.Errorf("expected no catalog calls, got %v", calls)
				}
			})
		}
	})

	t.Run("unknown playlist name", func(t *testing.T) {
		catalog := testCatalog()
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: catalog, DB: testDB(t), Logger: shared.NopLogger(), Output: &bytes.Buffer{}})

		err := run(t, r, "generate", "--source", "No Such Playlist")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if len(catalog.Writes()) != 0 {
			t.Error("expected no writes")
		}
	})

	t.Run("failed runs are recorded", func(t *testing.T) {
		catalog := testCatalog()
		catalog.Tracks["empty"] = nil
		db := testDB(t)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: catalog, DB: db, Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "generate", "--source", "empty"); err == nil {
			t.Fatal("expected an error for an empty source")
		}

		if err := run(t, r, "history", "--json"); err != nil {
			t.Fatalf("unexpected history error: %v", err)
		}
		var runs []runView
		if err := json.Unmarshal(output.Bytes(), &runs); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(runs) != 1 || runs[0].Status != models.RunFailed || runs[0].Error == "" {
			t.Errorf("expected one failed run, got %+v", runs)
		}
	})
}

func TestMatchPlaylist(t *testing.T) {
	playlists := []models.Playlist{
		{ID: "p1", Name: "Chill"},
		{ID: "chill", Name: "Other"},
		{ID: "p3", Name: " Late Night "},
	}

	tests := []struct {
		source string
		want   string
	}{
		{"p1", "p1"},
		{"chill", "chill"},
		{"CHILL", "p1"},
		{"late night", "p3"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := matchPlaylist(playlists, tt.source)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("expected no match, got %s", got.ID)
			case tt.want != "" && (got == nil || got.ID != tt.want):
				t.Errorf("expected %s, got %+v", tt.want, got)
			}
		})
	}
}

func TestSetupAndAuth(t *testing.T) {
	t.Run("setup config writes the template once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: tu.NewFakeCatalog(), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)

		output.Reset()
		if err := run(t, r, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "already exists") {
			t.Errorf("expected already exists message, got %q", output.String())
		}
	})

	t.Run("setup database", func(t *testing.T) {
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: tu.NewFakeCatalog(), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}
		if r.db != nil {
			t.Error("expected the database to be closed after the command")
		}

		output.Reset()
		if err := run(t, r, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("unexpected rollback error: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("status and logout", func(t *testing.T) {
		config := testConfig()
		config.Credentials.Spotify.AccessToken = "access"
		config.Credentials.Spotify.RefreshToken = "refresh"
		path := tu.WriteConfig(t, config)
		output := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Config: config, Catalog: tu.NewFakeCatalog(), Logger: shared.NopLogger(), Output: output})

		if err := run(t, r, "--config", path, "auth", "status"); err != nil {
			t.Fatalf("unexpected status error: %v", err)
		}
		if !strings.Contains(output.String(), "Authenticated as Test User (user1)") {
			t.Errorf("unexpected status output %q", output.String())
		}

		if err := run(t, r, "--config", path, "auth", "logout"); err != nil {
			t.Fatalf("unexpected logout error: %v", err)
		}
		saved, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if saved.Credentials.Spotify.HasToken() {
			t.Error("expected the token to be removed")
		}

		output.Reset()
		if err := run(t, r, "--config", path, "auth", "status"); err != nil {
			t.Fatalf("unexpected status error: %v", err)
		}
		if !strings.Contains(output.String(), "Not authenticated") {
			t.Errorf("unexpected status output %q", output.String())
		}
	})

	t.Run("login without credentials", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Config: testConfig(), Catalog: tu.NewFakeCatalog(), Logger: shared.NopLogger(), Output: &bytes.Buffer{}})
		if err := run(t, r, "auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewRun(0, "src", "Fresh Weekly", 30, 1.5, 2)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" || run.Sequence() != 1 {
			t.Errorf("expected id and sequence 1, got %q %d", run.ID(), run.Sequence())
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.SourcePlaylistID() != "src" || retrieved.Bias() != 1.5 || retrieved.MaxPerArtist() != 2 {
			t.Errorf("unexpected run: %+v", retrieved)
		}
		if retrieved.Status() != models.RunRunning {
			t.Errorf("expected running, got %s", retrieved.Status())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewRun(0, "src", "Fresh Weekly", 30, 1, 2)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Succeed("pl1", "Fresh Weekly", 28)
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Status() != models.RunSucceeded || retrieved.PlaylistID() != "pl1" || retrieved.Accepted() != 28 {
			t.Errorf("unexpected outcome: %s %s %d", retrieved.Status(), retrieved.PlaylistID(), retrieved.Accepted())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := models.NewRun(0, "src", "Fresh Weekly", 30, 1, 2)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		sources := []string{"a", "b", "a", "c"}
		var runs []*models.Run
		for _, src := range sources {
			run := models.NewRun(0, src, "Fresh Weekly", 30, 1, 2)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			runs = append(runs, run)
		}

		runs[1].Fail(errors.New("boom"))
		if err := repo.Update(runs[1]); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}
		if err := repo.Delete(runs[3].ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Sequence() != 3 || all[2].Sequence() != 1 {
			t.Errorf("expected newest first, got sequences %d..%d", all[0].Sequence(), all[2].Sequence())
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{name: "by source", criteria: map[string]any{"source_playlist_id": "a"}, want: 2},
			{name: "by status string", criteria: map[string]any{"status": "failed"}, want: 1},
			{name: "by status", criteria: map[string]any{"status": models.RunRunning}, want: 2},
			{name: "limit", criteria: map[string]any{"limit": 1}, want: 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list runs: %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d runs, got %d", tt.want, len(got))
				}
			})
		}

		recent, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("failed to list recent runs: %v", err)
		}
		if len(recent) != 2 || recent[1].ErrorMessage() != "boom" {
			t.Errorf("unexpected recent runs: %d", len(recent))
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewRunRepository(setupTestDB(t))
			if err := repo.Create(models.NewRun(0, "", "x", 30, 1, 2)); err == nil {
				t.Fatal("expected validation error for empty source")
			}
		})
	})

	t.Run("NotFound errors", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		t.Run("Get", func(t *testing.T) {
			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})

		t.Run("Update", func(t *testing.T) {
			run := models.NewRun(0, "src", "x", 30, 1, 2)
			run.SetID("nonexistent-id")
			if err := repo.Update(run); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})

		t.Run("Delete", func(t *testing.T) {
			if err := repo.Delete("nonexistent-id"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})

		t.Run("AlreadyDeleted", func(t *testing.T) {
			run := models.NewRun(0, "src", "x", 30, 1, 2)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			if err := repo.Delete(run.ID()); err != nil {
				t.Fatalf("failed to delete run: %v", err)
			}
			if err := repo.Delete(run.ID()); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
			}
		})
	})
}

func TestRunRecorder(t *testing.T) {
	ctx := context.Background()
	cfg := tasks.GenerateConfig{SourcePlaylistID: "src", TargetTrackCount: 20, BiasExponent: 2, MaxTracksPerArtist: 3, PlaylistName: "Weekly"}

	t.Run("success", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		rec := NewRunRecorder(repo)

		id, err := rec.RecordStart(ctx, cfg)
		if err != nil {
			t.Fatalf("failed to record start: %v", err)
		}

		result := &tasks.GenerationResult{PlaylistID: "pl1", PlaylistName: "Weekly", Tracks: make([]models.Track, 18)}
		if err := rec.RecordFinish(ctx, id, result, nil); err != nil {
			t.Fatalf("failed to record finish: %v", err)
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Status() != models.RunSucceeded || run.Accepted() != 18 || run.Requested() != 20 || run.Bias() != 2 {
			t.Errorf("unexpected run: %s accepted=%d requested=%d bias=%v", run.Status(), run.Accepted(), run.Requested(), run.Bias())
		}
	})

	t.Run("failure", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		rec := NewRunRecorder(repo)

		id, err := rec.RecordStart(ctx, cfg)
		if err != nil {
			t.Fatalf("failed to record start: %v", err)
		}
		if err := rec.RecordFinish(ctx, id, nil, tasks.ErrNoCandidates); err != nil {
			t.Fatalf("failed to record finish: %v", err)
		}

		run, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if run.Status() != models.RunFailed || run.ErrorMessage() != tasks.ErrNoCandidates.Error() {
			t.Errorf("unexpected run: %s %q", run.Status(), run.ErrorMessage())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		rec := NewRunRecorder(NewRunRepository(setupTestDB(t)))
		if err := rec.RecordFinish(ctx, "missing", nil, errors.New("boom")); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		rec := NewRunRecorder(NewRunRepository(setupTestDB(t)))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := rec.RecordStart(cctx, cfg); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

package shared

import (
	"bytes"
	"strings"
	"testing"
)

func TestChunk(t *testing.T) {
	tc := []struct {
		name  string
		items []int
		size  int
		want  []int // chunk lengths
	}{
		{name: "empty", items: nil, size: 3, want: nil},
		{name: "exact", items: []int{1, 2, 3, 4, 5, 6}, size: 3, want: []int{3, 3}},
		{name: "remainder", items: []int{1, 2, 3, 4, 5, 6, 7}, size: 3, want: []int{3, 3, 1}},
		{name: "smaller than size", items: []int{1, 2}, size: 100, want: []int{2}},
		{name: "non-positive size", items: []int{1, 2, 3}, size: 0, want: []int{3}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.items, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(got))
			}
			for i, c := range got {
				if len(c) != tt.want[i] {
					t.Errorf("chunk %d: expected length %d, got %d", i, tt.want[i], len(c))
				}
			}
		})
	}

	t.Run("preserves order", func(t *testing.T) {
		items := make([]int, 250)
		for i := range items {
			items[i] = i
		}
		next := 0
		for _, c := range Chunk(items, 100) {
			for _, v := range c {
				if v != next {
					t.Fatalf("expected %d, got %d", next, v)
				}
				next++
			}
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if a == b {
		t.Error("expected distinct state tokens")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("state should be URL-safe, got %s", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]int{"a": 1}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(compact) != `{"a":1}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Contains(pretty, []byte("\n  \"a\": 1")) {
		t.Errorf("expected indented output, got %s", pretty)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "run", "abc")
	logger.Info("phase changed", "phase", "sampling_seeds")

	out := buf.String()
	if !strings.Contains(out, "phase changed") || !strings.Contains(out, "run=abc") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestPlaylistNameOrDefault(t *testing.T) {
	if got := PlaylistNameOrDefault("  Monday Mix "); got != "Monday Mix" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if got := PlaylistNameOrDefault("   "); got != DefaultPlaylist {
		t.Errorf("expected default name, got %q", got)
	}
}

func TestBrowserCommand(t *testing.T) {
	tc := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "https://accounts.spotify.com/authorize")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, name)
			}
			if args[len(args)-1] != "https://accounts.spotify.com/authorize" {
				t.Errorf("expected url as last argument, got %v", args)
			}
		})
	}
}

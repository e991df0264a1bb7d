package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a generation run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   State  // State the run is in
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// TierProgress is attached to updates emitted after each collected batch.
type TierProgress struct {
	Tier       Tier
	Artists    []string
	Candidates int
	Accepted   int // accepted by this batch
	Total      int // accepted so far
}

func fetchingSourceUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchingSource,
		Step:    1,
		Total:   1,
		Message: "Pulling tracks from your inspiration playlist...",
	}
}

func samplingSeedsUpdate(artists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SamplingSeeds,
		Step:    1,
		Total:   1,
		Message: "Bias-sampling artists you play the most...",
		Data:    artists,
	}
}

func seedTierUpdate(seeds []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectingSeedTier,
		Step:    1,
		Total:   1,
		Message: "Collecting albums from your biased artists...",
		Data:    seeds,
	}
}

func neighborTierUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectingNeighborTier,
		Message: "Scanning playlists for neighboring artists...",
	}
}

func fallbackTierUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectingFallbackTier,
		Message: "Padding with more artists from your playlist...",
	}
}

func batchUpdate(state State, step, total int, p TierProgress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   state,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s tier: %d accepted, %d total", step, total, p.Tier, p.Accepted, p.Total),
		Data:    p,
	}
}

func resolvePlaylistUpdate(reused bool) ProgressUpdate {
	msg := "Creating your playlist on Spotify..."
	if reused {
		msg = "Updating your existing playlist..."
	}
	return ProgressUpdate{Phase: Writing, Step: 0, Total: 1, Message: msg}
}

func savingTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Writing,
		Step:    step,
		Total:   total,
		Message: "Saving tracks to Spotify...",
	}
}

func doneUpdate(result *GenerationResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: "Done!",
		Data:    result,
	}
}

func erroredUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Errored,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Generation failed: %v", err),
		Data:    err,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

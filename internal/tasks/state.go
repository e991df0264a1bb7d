package tasks

import "fmt"

// State is a step of the generation state machine.
type State int

const (
	Idle State = iota
	FetchingSource
	SamplingSeeds
	CollectingSeedTier
	CollectingNeighborTier
	CollectingFallbackTier
	Writing
	Done
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FetchingSource:
		return "fetching_source"
	case SamplingSeeds:
		return "sampling_seeds"
	case CollectingSeedTier:
		return "collecting_seed_tier"
	case CollectingNeighborTier:
		return "collecting_neighbor_tier"
	case CollectingFallbackTier:
		return "collecting_fallback_tier"
	case Writing:
		return "writing"
	case Done:
		return "done"
	case Errored:
		return "errored"
	default:
		return ""
	}
}

// IsTerminal reports whether a run in state s has finished.
func (s State) IsTerminal() bool {
	return s == Done || s == Errored
}

// canTransition reports whether a run may move from one state to another.
//
// A finished generator starts its next run from a terminal state.
func canTransition(from, to State) bool {
	if to == Errored {
		return from != Idle && !from.IsTerminal()
	}

	switch from {
	case Idle, Done, Errored:
		return to == FetchingSource
	case FetchingSource:
		return to == SamplingSeeds
	case SamplingSeeds:
		return to == CollectingSeedTier
	case CollectingSeedTier:
		return to == CollectingNeighborTier || to == Writing
	case CollectingNeighborTier:
		return to == CollectingFallbackTier || to == Writing
	case CollectingFallbackTier:
		return to == Writing
	case Writing:
		return to == Done
	default:
		return false
	}
}

func transitionError(from, to State) error {
	return fmt.Errorf("disallowed transition: %s -> %s", from, to)
}

// Tier is a discovery phase, in escalating order.
type Tier int

const (
	SeedTier Tier = iota
	NeighborTier
	FallbackTier
)

func (t Tier) String() string {
	switch t {
	case SeedTier:
		return "seed"
	case NeighborTier:
		return "neighbor"
	case FallbackTier:
		return "fallback"
	default:
		return ""
	}
}

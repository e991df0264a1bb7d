// Package repositories implements SQLite persistence for generation run history.
//
// Key Implementations:
//   - [RunRepository] : CRUD over the runs table with soft deletes
//   - [RunRecorder] : adapts [RunRepository] to tasks.RunRecorder so every generation is recorded
//
// Only the configuration and outcome of a run are stored. Generated tracks live on Spotify.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories

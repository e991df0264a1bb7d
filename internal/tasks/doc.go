// Package tasks builds "fresh" playlists from an inspiration playlist with real-time progress reporting.
//
// # Pipeline
//
// [Generator.Generate] walks a fixed state machine (see [State]):
//
//  1. Fetch the source playlist and count tracks per primary artist ([ArtistWeights]).
//  2. Sample seed artists without replacement, weighted by count raised to the bias exponent ([WeightedSample]).
//  3. Collect candidates tier by tier until the target is met:
//     - seed tier: albums of the seed artists
//     - neighbor tier: artists credited on public playlists that feature a seed
//     - fallback tier: the remaining source artists, shuffled
//  4. Interleave by primary artist ([Interleave]) and write the playlist, replacing the tracks of an
//     existing playlist with the same name or creating a new one.
//
// A [Collector] bounds every artist to a few albums and every album to a few tracks. The
// [Accumulator] rejects source tracks, duplicates and tracks past the per-artist cap.
//
// # Progress Reporting
//
// Progress is sent on a non-blocking channel of [ProgressUpdate]. Updates use select with
// default, so a slow reader only loses intermediate updates.
//
// # Failures
//
// Catalog failures while collecting abort the run as a [CollectorFetchError] and nothing is
// written. Failures while resolving or filling the target playlist surface as a
// [PlaylistWriteError]; a created playlist is left in place.
//
// # Run History
//
// The optional [RunRecorder] receives the start and outcome of every run
// (repositories.RunRecorder). Recorder errors are logged and ignored.
package tasks

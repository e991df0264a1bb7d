// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks the generation workflow:
//  1. [PlaylistListView] : browse and filter your playlists to pick the inspiration playlist
//  2. [ConfirmView] : adjust track count, bias, per-artist cap and visibility
//  3. [GenerateView] : spinner plus the latest phase label while the generator runs
//  4. [ResultView] : the interleaved tracks and where they were written
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Generator]; the final result arrives on a separate
// channel once the progress channel closes.
//
// Keyboard navigation uses vim-style list bindings plus y/n, +/-, b, c, p, r and q, with contextual help displayed via charmbracelet/bubbles/help.
package ui

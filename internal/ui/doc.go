// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one recommendation at a time:
//  1. [InputView] : Enter a track id, a Spotify link, or free text to search for
//  2. [SearchView] : Pick the seed track from the search results
//  3. [RunningView] : Watch each strategy report progress
//  4. [ResultView] : Browse the artist, album and genre categories as tabs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the recommendation engine; the final result follows once the channel closes.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, f, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

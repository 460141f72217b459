// Package ui implements the interactive playlist builder using bubbletea's Elm architecture.
//
// The screen has a search box over two panes:
//   - Results : tracks from the last search, a ✓ marks ones already in the playlist
//   - Playlist : the playlist being built, with its name as the pane title
//
// Tracks are added from Results (deduplicated by id), removed from Playlist, and the playlist can be
// renamed and saved. A successful save resets the name to "New Playlist" and clears the tracks.
//
// Searches and saves ask for a token first. If the session needs consent the browser is opened,
// the action is parked and the model waits on the callback channel before replaying it.
//
// Messages use the [Msg] union with a [MsgKind] tag.
package ui

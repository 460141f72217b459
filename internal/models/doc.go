// Package models defines the domain types shared by the executor, formatters and the TUI.
//
//   - [Track] : Track summary returned by search {id, name, artist, album, uri}
//   - [Playlist] : Playlist under construction, edited locally then saved in one go
//
// [Playlist] is a plain value with no I/O. Saving it goes through services.SpotifyService.SavePlaylist.
package models

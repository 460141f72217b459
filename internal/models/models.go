// package models defines the data model for the playlist builder
package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/jammming/internal/shared"
)

// DefaultPlaylistName is the name a fresh (or freshly saved) playlist starts with.
const DefaultPlaylistName = "New Playlist"

// UnknownField fills in a missing artist or album.
const UnknownField = "Unknown"

// Track is a search result reduced to what the builder needs.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	URI    string `json:"uri"`
}

// String renders "Name - Artist (Album)".
func (t Track) String() string {
	return fmt.Sprintf("%s - %s (%s)", t.Name, t.Artist, t.Album)
}

// Playlist is a named, ordered set of tracks. Tracks are unique by ID.
type Playlist struct {
	Name   string
	Tracks []Track
}

// NewPlaylist returns an empty playlist named [DefaultPlaylistName].
func NewPlaylist() *Playlist {
	return &Playlist{Name: DefaultPlaylistName}
}

// Add appends t unless a track with the same ID is already present.
func (p *Playlist) Add(t Track) bool {
	if p.Contains(t.ID) {
		return false
	}
	p.Tracks = append(p.Tracks, t)
	return true
}

// Remove drops the track with the given ID.
func (p *Playlist) Remove(id string) bool {
	for i, t := range p.Tracks {
		if t.ID == id {
			p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether a track with the given ID is in the playlist.
func (p *Playlist) Contains(id string) bool {
	for _, t := range p.Tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Rename sets the playlist name.
func (p *Playlist) Rename(name string) {
	p.Name = name
}

// URIs returns the track URIs in playlist order.
func (p *Playlist) URIs() []string {
	uris := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		uris = append(uris, t.URI)
	}
	return uris
}

// Reset restores the name and clears every track. Called after a successful save.
func (p *Playlist) Reset() {
	p.Name = DefaultPlaylistName
	p.Tracks = nil
}

// Validate checks the playlist can be saved.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)
	}
	if len(p.Tracks) == 0 {
		return fmt.Errorf("%w: playlist has no tracks", shared.ErrInvalidInput)
	}
	return nil
}

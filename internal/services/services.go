// package services implements the authenticated request executor for the Spotify Web API
package services

import (
	"context"

	"github.com/desertthunder/jammming/internal/auth"
	"github.com/desertthunder/jammming/internal/models"
)

// TokenProvider hands out access tokens. [auth.Controller] implements it.
type TokenProvider interface {
	EnsureToken(ctx context.Context) (auth.Result, error)
}

// Service is the surface the CLI and TUI are allowed to call.
type Service interface {
	// Search returns track summaries for query. Blank queries and failed requests yield an empty list.
	Search(ctx context.Context, query string) []models.Track

	// SavePlaylist creates a playlist named name holding uris.
	// Returns false without touching the network when either is empty.
	SavePlaylist(ctx context.Context, name string, uris []string) (bool, error)

	// Name returns the name of the service
	Name() string
}

var _ Service = (*SpotifyService)(nil)

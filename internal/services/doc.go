// Package services implements the authenticated request executor on top of [auth.Controller].
//
// # Executor
//
// [SpotifyService.AuthorizedCall] asks its [TokenProvider] for a token before every request.
// When a consent redirect is in flight it returns [shared.ErrRedirectInFlight] without
// touching the network. Otherwise the request carries "Authorization: Bearer <token>", set
// after caller headers so a caller can never override it. Non-2xx responses are handed back
// untouched.
//
// # Domain operations
//
//   - [SpotifyService.Search] : GET /search?type=track, degrading every failure to an empty list
//   - [SpotifyService.SavePlaylist] : GET /me, POST /users/{id}/playlists, POST /playlists/{id}/tracks
//
// SavePlaylist fails as a whole when any step fails. The error wraps one of
// [shared.ErrProfileFetch], [shared.ErrPlaylistCreate] or [shared.ErrTrackAppend].
// A partially created playlist is left in place.
//
// Outbound calls are paced by a [rate.Limiter] when a rate limit is configured.
//
// # API Mappings
//
// [SpotifyTrack] responses map onto [models.Track]. A missing first artist or album name
// becomes [models.UnknownField].
package services

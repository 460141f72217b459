// Spotify Web API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jammming/internal/models"
	"github.com/desertthunder/jammming/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// MaxTracksPerRequest is the most URIs the add-items endpoint accepts at once.
	MaxTracksPerRequest = 100

	defaultDescription = "Created with Jammming"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyPlaylist represents a playlist as returned by the create endpoint.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// Options configures a [SpotifyService].
type Options struct {
	Tokens     TokenProvider
	APIURL     string       // defaults to https://api.spotify.com/v1
	HTTPClient *http.Client // defaults to http.DefaultClient
	RateLimit  float64      // requests per second, 0 disables pacing
	Logger     *log.Logger

	Description string // defaults to "Created with Jammming"
	Public      bool
}

// SpotifyService executes authorized Web API calls and implements [Service].
type SpotifyService struct {
	tokens      TokenProvider
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
	description string
	public      bool
}

// NewSpotifyService creates a Spotify executor drawing tokens from opts.Tokens.
func NewSpotifyService(opts Options) (*SpotifyService, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: token provider is required", shared.ErrInvalidArgument)
	}

	baseURL := strings.TrimRight(opts.APIURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	description := opts.Description
	if description == "" {
		description = defaultDescription
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &SpotifyService{
		tokens:      opts.Tokens,
		baseURL:     baseURL,
		httpClient:  client,
		limiter:     limiter,
		logger:      shared.WithLogger(logger, "component", "spotify"),
		description: description,
		public:      opts.Public,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthorizedCall sends an authenticated request. endpoint is either an absolute URL or a path
// relative to the API base URL.
//
// When the token provider is redirecting to the consent screen, no request is made and the
// error is [shared.ErrRedirectInFlight]. Non-2xx responses are returned as-is; the caller
// must close the body.
func (s *SpotifyService) AuthorizedCall(ctx context.Context, method, endpoint string, body io.Reader, header http.Header) (*http.Response, error) {
	res, err := s.tokens.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, shared.ErrRedirectInFlight
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug("HTTP error", "method", method, "url", req.URL.Path, "status", resp.StatusCode)
	}
	return resp, nil
}

// Search queries the track search endpoint. Every failure degrades to an empty list, so
// callers that need to tell an authorization failure apart call EnsureToken first.
func (s *SpotifyService) Search(ctx context.Context, query string) []models.Track {
	term := strings.TrimSpace(query)
	if term == "" {
		return []models.Track{}
	}

	params := url.Values{}
	params.Set("type", "track")
	params.Set("q", term)

	var response searchResponse
	if err := s.doJSON(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		if isFlowError(err) {
			s.logger.Error("search could not authorize", "query", term, "error", err)
		} else {
			s.logger.Warn("search failed", "query", term, "error", err)
		}
		return []models.Track{}
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, t := range response.Tracks.Items {
		tracks = append(tracks, toTrack(t))
	}

	s.logger.Debug("search complete", "query", term, "results", len(tracks))
	return tracks
}

// SavePlaylist creates a playlist named name under the current user and adds uris to it.
//
// Only an empty name short-circuits; callers that want trimming do it before calling.
func (s *SpotifyService) SavePlaylist(ctx context.Context, name string, uris []string) (bool, error) {
	if name == "" || len(uris) == 0 {
		return false, nil
	}

	user, err := s.UserProfile(ctx)
	if err != nil {
		return false, err
	}

	playlist, err := s.CreatePlaylist(ctx, user.ID, name)
	if err != nil {
		return false, err
	}

	if err := s.AddTracks(ctx, playlist.ID, uris); err != nil {
		return false, err
	}

	s.logger.Info("playlist saved", "playlist_id", playlist.ID, "tracks", len(uris))
	return true, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doJSON(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrProfileFetch, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", shared.ErrProfileFetch)
	}
	return &user, nil
}

// CreatePlaylist creates an empty playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name string) (*SpotifyPlaylist, error) {
	body := createPlaylistRequest{Name: name, Description: s.description, Public: s.public}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifyPlaylist
	if err := s.doJSON(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrPlaylistCreate, err)
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("%w: response has no playlist id", shared.ErrPlaylistCreate)
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist, [MaxTracksPerRequest] at a time.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(uris))

		var snap snapshotResponse
		if err := s.doJSON(ctx, http.MethodPost, endpoint, addTracksRequest{URIs: uris[start:end]}, &snap); err != nil {
			return fmt.Errorf("%w: tracks %d-%d: %w", shared.ErrTrackAppend, start, end-1, err)
		}
	}
	return nil
}

// doJSON performs an authorized request with an optional JSON body and decodes a 2xx response into result.
func (s *SpotifyService) doJSON(ctx context.Context, method, endpoint string, body any, result any) error {
	var reader io.Reader
	header := http.Header{}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
	}

	resp, err := s.AuthorizedCall(ctx, method, endpoint, reader, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (s *SpotifyService) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return s.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// apiError reads the Web API error object, {"error": {"status", "message"}}, when there is one.
func apiError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

// isFlowError reports authorization flow failures that degrade a search but still need attention.
func isFlowError(err error) bool {
	for _, target := range []error{
		shared.ErrMissingVerifier, shared.ErrStateMismatch, shared.ErrTokenExchange,
		shared.ErrRefreshFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toTrack(t SpotifyTrack) models.Track {
	track := models.Track{
		ID:     t.ID,
		Name:   t.Name,
		Artist: models.UnknownField,
		Album:  models.UnknownField,
		URI:    t.URI,
	}
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		track.Artist = t.Artists[0].Name
	}
	if t.Album.Name != "" {
		track.Album = t.Album.Name
	}
	return track
}

package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization flow errors
	ErrMissingVerifier  = fmt.Errorf("missing PKCE verifier")
	ErrStateMismatch    = fmt.Errorf("authorization state mismatch")
	ErrConsentDenied    = fmt.Errorf("authorization denied")
	ErrTokenExchange    = fmt.Errorf("token exchange failed")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrRedirectInFlight = fmt.Errorf("consent redirect in flight")
	ErrTimeout          = fmt.Errorf("timed out waiting for authorization")

	// Web API errors, one per playlist save step
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrProfileFetch   = fmt.Errorf("failed to fetch profile")
	ErrPlaylistCreate = fmt.Errorf("failed to create playlist")
	ErrTrackAppend    = fmt.Errorf("failed to add tracks")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

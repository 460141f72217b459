// Package auth runs the Authorization Code with PKCE flow for a public client and keeps a
// usable access token available to the rest of jam.
//
// # State Machine
//
// [Controller.EnsureToken] holds no "current state" field. Every call takes a snapshot of
// the session store and the tracked [Location] and hands it to [Classify], a pure function
// with a strict priority order:
//
//  1. [StateCachedValid] : the store has an unexpired token, return it
//  2. [StateCodePending] : the location carries ?code=, exchange it for tokens
//  3. [StateRefreshable] : a refresh token exists, mint a new access token with it
//  4. [StateNeedsConsent] : generate a verifier, store it, open the consent screen
//
// A pending code beats a stale refresh token because the user has just finished an explicit
// consent round-trip.
//
// # Redirects
//
// Consent is not an error. EnsureToken returns a [Result] whose RedirectURL is set and whose
// AccessToken is empty; callers must stop and wait for the callback instead of retrying.
//
// # Single-use verifier
//
// The verifier slot is deleted after every exchange attempt, successful or not, and the
// code/state parameters are stripped from the location so a replay cannot reach the token
// endpoint twice. A code that arrives with no stored verifier fails with
// [shared.ErrMissingVerifier] and never triggers another redirect.
//
// # Refresh rejection
//
// When the token endpoint rejects a refresh token the whole store is cleared and the call
// falls through to consent, so a dead refresh token is never retried.
//
// # Concurrency
//
// Overlapping EnsureToken calls share a single evaluation through a singleflight group, so
// two searches started together cause at most one refresh or one consent redirect.
package auth

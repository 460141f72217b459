package session

import (
	"fmt"
	"strconv"
	"time"
)

// Storage keys. The token triple, the single-use verifier and its paired state.
const (
	KeyAccessToken  = "sp_token"
	KeyRefreshToken = "sp_refresh"
	KeyExpiresAt    = "sp_exp"
	KeyVerifier     = "sp_code_verifier"
	KeyState        = "sp_state"
)

const (
	// Skew is subtracted from expiry so a token is not used while it expires mid-request.
	Skew = 5 * time.Second

	// DefaultExpiresIn applies when an issuance response has no usable expires_in.
	DefaultExpiresIn int64 = 3600
)

// TokenRecord is the cached credential triple.
type TokenRecord struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issued is the subset of a token endpoint response the store consumes.
type Issued struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// PendingAuthorization is written right before a consent redirect and consumed by the
// code exchange.
type PendingAuthorization struct {
	CodeVerifier string
	State        string
}

// Status describes the store without exposing any credential.
type Status struct {
	HasAccessToken  bool
	HasRefreshToken bool
	ExpiresIn       time.Duration
}

// TokenStore reads and writes credentials through a [Storage].
type TokenStore struct {
	storage Storage
	now     func() time.Time
}

// NewTokenStore creates a store over storage. A nil clock uses [time.Now].
func NewTokenStore(storage Storage, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{storage: storage, now: now}
}

// Get returns the current record while now < expiresAt - [Skew], otherwise nil.
//
// An expired record is left in place for the refresh logic to inspect.
func (s *TokenStore) Get() (*TokenRecord, error) {
	access, ok, err := s.storage.Get(KeyAccessToken)
	if err != nil || !ok || access == "" {
		return nil, err
	}

	expiresAt, err := s.expiresAt()
	if err != nil {
		return nil, err
	}

	if !s.now().Before(expiresAt.Add(-Skew)) {
		return nil, nil
	}

	refresh, _, err := s.storage.Get(KeyRefreshToken)
	if err != nil {
		return nil, err
	}

	return &TokenRecord{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// Put stores an issuance response. expiresAt becomes now + expires_in, defaulting to
// [DefaultExpiresIn] seconds. An empty refresh token keeps the one already stored.
func (s *TokenStore) Put(issued Issued) (*TokenRecord, error) {
	if issued.AccessToken == "" {
		return nil, fmt.Errorf("issuance response has no access_token")
	}

	expiresIn := issued.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	expiresAt := s.now().Add(time.Duration(expiresIn) * time.Second)

	items := map[string]string{
		KeyAccessToken: issued.AccessToken,
		KeyExpiresAt:   strconv.FormatInt(expiresAt.UnixMilli(), 10),
	}
	if issued.RefreshToken != "" {
		items[KeyRefreshToken] = issued.RefreshToken
	}

	if err := s.storage.SetAll(items); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	refresh, err := s.RefreshToken()
	if err != nil {
		return nil, err
	}

	return &TokenRecord{AccessToken: issued.AccessToken, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// Clear removes the access token, refresh token and expiry.
func (s *TokenStore) Clear() error {
	if err := s.storage.Delete(KeyAccessToken, KeyRefreshToken, KeyExpiresAt); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// RefreshToken returns the stored refresh token, or "" when there is none.
func (s *TokenStore) RefreshToken() (string, error) {
	refresh, _, err := s.storage.Get(KeyRefreshToken)
	return refresh, err
}

// SavePending writes the single-use verifier slot and its state.
func (s *TokenStore) SavePending(p PendingAuthorization) error {
	if err := s.storage.SetAll(map[string]string{KeyVerifier: p.CodeVerifier, KeyState: p.State}); err != nil {
		return fmt.Errorf("failed to store verifier: %w", err)
	}
	return nil
}

// Pending returns the stored verifier slot and whether a verifier is present.
func (s *TokenStore) Pending() (PendingAuthorization, bool, error) {
	verifier, ok, err := s.storage.Get(KeyVerifier)
	if err != nil || !ok || verifier == "" {
		return PendingAuthorization{}, false, err
	}

	state, _, err := s.storage.Get(KeyState)
	if err != nil {
		return PendingAuthorization{}, false, err
	}

	return PendingAuthorization{CodeVerifier: verifier, State: state}, true, nil
}

// DeletePending empties the verifier slot.
func (s *TokenStore) DeletePending() error {
	if err := s.storage.Delete(KeyVerifier, KeyState); err != nil {
		return fmt.Errorf("failed to delete verifier: %w", err)
	}
	return nil
}

// Status reports presence flags and the remaining lifetime of the access token.
func (s *TokenStore) Status() (Status, error) {
	var st Status

	access, _, err := s.storage.Get(KeyAccessToken)
	if err != nil {
		return st, err
	}
	refresh, err := s.RefreshToken()
	if err != nil {
		return st, err
	}
	expiresAt, err := s.expiresAt()
	if err != nil {
		return st, err
	}

	st.HasAccessToken = access != ""
	st.HasRefreshToken = refresh != ""
	if left := expiresAt.Sub(s.now()); left > 0 {
		st.ExpiresIn = left
	}
	return st, nil
}

func (s *TokenStore) expiresAt() (time.Time, error) {
	raw, ok, err := s.storage.Get(KeyExpiresAt)
	if err != nil || !ok {
		return time.Time{}, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// unreadable expiry counts as already expired
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

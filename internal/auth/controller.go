package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jammming/internal/pkce"
	"github.com/desertthunder/jammming/internal/session"
	"github.com/desertthunder/jammming/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var errRefreshRejected = errors.New("refresh token rejected")

// Result is the outcome of [Controller.EnsureToken]: either a token or a redirect in flight.
type Result struct {
	AccessToken string
	RedirectURL string
}

// Redirecting reports whether the user was sent to the consent screen instead of getting a token.
func (r Result) Redirecting() bool {
	return r.AccessToken == "" && r.RedirectURL != ""
}

// Options configures a [Controller].
type Options struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string
	TokenURL    string

	Store      *session.TokenStore
	Location   Location
	Navigator  Navigator
	HTTPClient *http.Client
	Logger     *log.Logger

	// VerifierLength defaults to [pkce.VerifierLength].
	VerifierLength int
}

// Controller is the only writer of the token triple and the verifier slot.
type Controller struct {
	oauth     *oauth2.Config
	store     *session.TokenStore
	location  Location
	navigator Navigator
	client    *http.Client
	logger    *log.Logger
	verifierN int
	group     singleflight.Group
}

// NewController validates opts and builds a [Controller].
func NewController(opts Options) (*Controller, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrInvalidConfig)
	}
	if opts.AuthURL == "" || opts.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth_url and token_url are required", shared.ErrInvalidConfig)
	}
	if opts.Store == nil || opts.Location == nil || opts.Navigator == nil {
		return nil, fmt.Errorf("%w: store, location and navigator are required", shared.ErrInvalidArgument)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.VerifierLength <= 0 {
		opts.VerifierLength = pkce.VerifierLength
	}

	return &Controller{
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:     opts.Store,
		location:  opts.Location,
		navigator: opts.Navigator,
		client:    opts.HTTPClient,
		logger:    shared.WithLogger(opts.Logger, "component", "auth"),
		verifierN: opts.VerifierLength,
	}, nil
}

// EnsureToken returns a usable access token, exchanging, refreshing or redirecting as needed.
//
// Concurrent callers share one evaluation.
func (c *Controller) EnsureToken(ctx context.Context) (Result, error) {
	v, err, joined := c.group.Do("ensure", func() (any, error) {
		return c.ensure(ctx)
	})
	if joined {
		c.logger.Debug("joined in-flight token check")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Controller) ensure(ctx context.Context) (Result, error) {
	rec, err := c.store.Get()
	if err != nil {
		return Result{}, err
	}
	refresh, err := c.store.RefreshToken()
	if err != nil {
		return Result{}, err
	}
	query := c.location.Current().Query()

	state := Classify(Snapshot{
		HasValidToken:   rec != nil,
		Code:            query.Get("code"),
		HasRefreshToken: refresh != "",
	})
	c.logger.Debug("token check", "state", state)

	switch state {
	case StateCachedValid:
		return Result{AccessToken: rec.AccessToken}, nil

	case StateCodePending:
		rec, err := c.exchange(ctx, query.Get("code"), query.Get("state"))
		if err != nil {
			return Result{}, err
		}
		return Result{AccessToken: rec.AccessToken}, nil

	case StateRefreshable:
		rec, err := c.refresh(ctx, refresh)
		if err == nil {
			return Result{AccessToken: rec.AccessToken}, nil
		}
		if !errors.Is(err, errRefreshRejected) {
			return Result{}, err
		}
	}

	return c.consent(ctx)
}

// exchange trades an authorization code for tokens. The verifier slot is emptied and the
// code/state parameters are stripped whatever the outcome, including a missing verifier.
func (c *Controller) exchange(ctx context.Context, code, state string) (*session.TokenRecord, error) {
	pending, ok, err := c.store.Pending()
	if err != nil {
		return nil, err
	}
	if !ok {
		stripParams(c.location, "code", "state")
		return nil, fmt.Errorf("%w: authorization code received but no verifier is stored", shared.ErrMissingVerifier)
	}

	defer func() {
		if err := c.store.DeletePending(); err != nil {
			c.logger.Warn("failed to delete verifier", "error", err)
		}
		stripParams(c.location, "code", "state")
	}()

	if pending.State != "" && state != pending.State {
		return nil, fmt.Errorf("%w: callback state does not match the consent request", shared.ErrStateMismatch)
	}

	tok, err := c.oauth.Exchange(c.withClient(ctx), code, oauth2.VerifierOption(pending.CodeVerifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrTokenExchange, describe(err))
	}

	rec, err := c.store.Put(issuedFrom(tok))
	if err != nil {
		return nil, err
	}

	c.logger.Info("exchanged code for token", "expires_at", rec.ExpiresAt, "has_refresh_token", rec.RefreshToken != "")
	c.logger.Debug("token stored", "access_token", shared.Redacted(rec.AccessToken), "refresh_token", shared.Redacted(rec.RefreshToken))
	return rec, nil
}

// refresh mints a new access token. A rejection clears the store so the next call
// goes straight to consent.
func (c *Controller) refresh(ctx context.Context, refreshToken string) (*session.TokenRecord, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if !errors.As(err, &re) {
			return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		}

		c.logger.Warn("refresh rejected, clearing session", "error", describe(re))
		if err := c.store.Clear(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, errRefreshRejected)
	}

	rec, err := c.store.Put(issuedFrom(tok))
	if err != nil {
		return nil, err
	}

	c.logger.Info("token refreshed", "expires_at", rec.ExpiresAt)
	c.logger.Debug("token stored", "access_token", shared.Redacted(rec.AccessToken), "rotated", rec.RefreshToken != refreshToken)
	return rec, nil
}

// consent stores a fresh verifier and sends the user to the authorization endpoint.
func (c *Controller) consent(ctx context.Context) (Result, error) {
	verifier, err := pkce.GenerateVerifier(c.verifierN)
	if err != nil {
		return Result{}, err
	}
	state, err := pkce.GenerateState()
	if err != nil {
		return Result{}, err
	}

	if err := c.store.SavePending(session.PendingAuthorization{CodeVerifier: verifier, State: state}); err != nil {
		return Result{}, err
	}

	authURL := c.AuthURL(state, pkce.ChallengeFromVerifier(verifier))
	if err := c.navigator.Navigate(ctx, authURL); err != nil {
		return Result{}, fmt.Errorf("failed to open consent screen: %w", err)
	}

	c.logger.Info("redirected to consent screen")
	return Result{RedirectURL: authURL}, nil
}

// AuthURL builds the consent URL for a state and S256 challenge.
func (c *Controller) AuthURL(state, challenge string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}

// PendingState returns the state of the consent request awaiting its callback.
func (c *Controller) PendingState() (string, bool) {
	p, ok, err := c.store.Pending()
	if err != nil || !ok {
		return "", false
	}
	return p.State, true
}

// Status reports what the session holds without revealing any credential.
func (c *Controller) Status() (session.Status, error) {
	return c.store.Status()
}

// Location returns the tracked location the callback server writes to.
func (c *Controller) Location() Location {
	return c.location
}

func (c *Controller) withClient(ctx context.Context) context.Context {
	if c.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.client)
}

// issuedFrom reads expires_in from the raw response so expiry is computed against the
// store's clock rather than the one oauth2 used.
func issuedFrom(tok *oauth2.Token) session.Issued {
	issued := session.Issued{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		issued.ExpiresIn = int64(v)
	case json.Number:
		issued.ExpiresIn, _ = v.Int64()
	case string:
		issued.ExpiresIn, _ = strconv.ParseInt(v, 10, 64)
	}
	return issued
}

func describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		if re.ErrorCode != "" {
			return fmt.Sprintf("status %d: %s", re.Response.StatusCode, re.ErrorCode)
		}
		return fmt.Sprintf("status %d", re.Response.StatusCode)
	}
	return err.Error()
}

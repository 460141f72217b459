package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/jammming/internal/pkce"
	"github.com/desertthunder/jammming/internal/session"
	"github.com/desertthunder/jammming/internal/shared"
	tu "github.com/desertthunder/jammming/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redirectURI = "http://127.0.0.1:3000/callback"

type harness struct {
	ctrl      *Controller
	store     *session.TokenStore
	storage   *session.MemoryStorage
	location  *Tracker
	navigator *tu.Navigator
	clock     *tu.Clock
	transport *tu.CountingTransport
	logs      *bytes.Buffer

	mu    sync.Mutex
	forms []url.Values
}

func (h *harness) lastForm(t *testing.T) url.Values {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.forms, "token endpoint was not called")
	return h.forms[len(h.forms)-1]
}

func newHarness(t *testing.T, respond func(w http.ResponseWriter, form url.Values)) *harness {
	t.Helper()

	h := &harness{
		storage:   session.NewMemoryStorage(),
		navigator: &tu.Navigator{},
		clock:     tu.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		transport: &tu.CountingTransport{},
		logs:      &bytes.Buffer{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		h.mu.Lock()
		h.forms = append(h.forms, r.PostForm)
		h.mu.Unlock()
		respond(w, r.PostForm)
	}))
	t.Cleanup(srv.Close)

	h.store = session.NewTokenStore(h.storage, h.clock.Now)

	logger := shared.NewLogger(h.logs)
	shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))

	var err error
	h.location, err = NewTracker(redirectURI)
	require.NoError(t, err)

	h.ctrl, err = NewController(Options{
		ClientID:    "client-123",
		RedirectURI: redirectURI,
		Scopes:      []string{"playlist-modify-public"},
		AuthURL:     "https://accounts.example.com/authorize",
		TokenURL:    srv.URL + "/api/token",
		Store:       h.store,
		Location:    h.location,
		Navigator:   h.navigator,
		HTTPClient:  &http.Client{Transport: h.transport},
		Logger:      logger,
	})
	require.NoError(t, err)

	return h
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func issue(access, refresh string, expiresIn int) func(http.ResponseWriter, url.Values) {
	return func(w http.ResponseWriter, _ url.Values) {
		body := map[string]any{"access_token": access, "token_type": "Bearer"}
		if refresh != "" {
			body["refresh_token"] = refresh
		}
		if expiresIn > 0 {
			body["expires_in"] = expiresIn
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func reject(w http.ResponseWriter, _ url.Values) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Refresh token revoked"})
}

func TestNewController(t *testing.T) {
	store := session.NewTokenStore(session.NewMemoryStorage(), nil)
	loc, err := NewTracker(redirectURI)
	require.NoError(t, err)

	base := Options{
		ClientID:    "id",
		RedirectURI: redirectURI,
		AuthURL:     "https://a/authorize",
		TokenURL:    "https://a/token",
		Store:       store,
		Location:    loc,
		Navigator:   &tu.Navigator{},
	}

	_, err = NewController(base)
	require.NoError(t, err)

	missingID := base
	missingID.ClientID = ""
	_, err = NewController(missingID)
	assert.ErrorIs(t, err, shared.ErrMissingCredentials)

	missingNav := base
	missingNav.Navigator = nil
	_, err = NewController(missingNav)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	missingToken := base
	missingToken.TokenURL = ""
	_, err = NewController(missingToken)
	assert.ErrorIs(t, err, shared.ErrInvalidConfig)
}

func TestEnsureToken_CachedValid(t *testing.T) {
	h := newHarness(t, issue("unused", "", 0))

	_, err := h.store.Put(session.Issued{AccessToken: "A", ExpiresIn: 10000})
	require.NoError(t, err)

	res, err := h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", res.AccessToken)
	assert.False(t, res.Redirecting())
	assert.Zero(t, h.transport.Count(), "cached token must not touch the network")
	assert.Empty(t, h.navigator.URLs())
}

func TestEnsureToken_Refresh(t *testing.T) {
	t.Run("keeps the stored refresh token", func(t *testing.T) {
		h := newHarness(t, issue("B", "", 3600))
		require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))

		res, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "B", res.AccessToken)

		form := h.lastForm(t)
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "R", form.Get("refresh_token"))
		assert.Equal(t, "client-123", form.Get("client_id"))
		assert.Empty(t, form.Get("client_secret"))

		rec, err := h.store.Get()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "B", rec.AccessToken)
		assert.Equal(t, "R", rec.RefreshToken)
		assert.Equal(t, h.clock.Now().Add(time.Hour).UnixMilli(), rec.ExpiresAt.UnixMilli())
	})

	t.Run("stores a rotated refresh token", func(t *testing.T) {
		h := newHarness(t, issue("B", "R2", 600))
		require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))

		_, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)

		refresh, err := h.store.RefreshToken()
		require.NoError(t, err)
		assert.Equal(t, "R2", refresh)
	})

	t.Run("expired access token is refreshed", func(t *testing.T) {
		h := newHarness(t, issue("fresh", "", 3600))
		_, err := h.store.Put(session.Issued{AccessToken: "stale", RefreshToken: "R", ExpiresIn: 60})
		require.NoError(t, err)
		h.clock.Advance(58 * time.Second)

		res, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fresh", res.AccessToken)
		assert.Equal(t, 1, h.transport.Count())
	})
}

func TestEnsureToken_RefreshRejected(t *testing.T) {
	h := newHarness(t, reject)
	_, err := h.store.Put(session.Issued{AccessToken: "old", RefreshToken: "dead", ExpiresIn: 1})
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	res, err := h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Redirecting())
	assert.Equal(t, 1, h.transport.Count())

	for _, k := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyExpiresAt} {
		_, ok, err := h.storage.Get(k)
		require.NoError(t, err)
		assert.False(t, ok, "%s should be cleared", k)
	}

	// the next call goes to consent again without retrying the dead refresh token
	res, err = h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Redirecting())
	assert.Equal(t, 1, h.transport.Count())
	assert.Len(t, h.navigator.URLs(), 2)
}

func TestEnsureToken_RefreshTransportError(t *testing.T) {
	h := newHarness(t, issue("unused", "", 0))
	require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	h.ctrl.oauth.Endpoint.TokenURL = dead.URL

	_, err := h.ctrl.EnsureToken(context.Background())
	assert.ErrorIs(t, err, shared.ErrRefreshFailed)

	refresh, err := h.store.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "R", refresh, "a network failure is not a rejection")
	assert.Empty(t, h.navigator.URLs())
}

func TestEnsureToken_NeedsConsent(t *testing.T) {
	h := newHarness(t, issue("unused", "", 0))

	res, err := h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Redirecting())
	assert.Empty(t, res.AccessToken)
	assert.Zero(t, h.transport.Count())

	urls := h.navigator.URLs()
	require.Len(t, urls, 1)
	assert.Equal(t, res.RedirectURL, urls[0])

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.example.com", u.Host)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, redirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "playlist-modify-public", q.Get("scope"))

	pending, ok, err := h.store.Pending()
	require.NoError(t, err)
	require.True(t, ok, "verifier must be stored before redirecting")
	assert.Len(t, pending.CodeVerifier, pkce.VerifierLength)
	assert.Equal(t, pkce.ChallengeFromVerifier(pending.CodeVerifier), q.Get("code_challenge"))
	assert.Equal(t, pending.State, q.Get("state"))

	state, ok := h.ctrl.PendingState()
	assert.True(t, ok)
	assert.Equal(t, pending.State, state)
}

func TestEnsureToken_CodeExchange(t *testing.T) {
	callback := func(t *testing.T, h *harness, query string) {
		t.Helper()
		u, err := url.Parse(redirectURI + "?" + query)
		require.NoError(t, err)
		h.location.Replace(u)
	}

	t.Run("success", func(t *testing.T) {
		h := newHarness(t, issue("A1", "R1", 3600))
		require.NoError(t, h.store.SavePending(session.PendingAuthorization{CodeVerifier: "verifier-1", State: "st"}))
		callback(t, h, "code=abc&state=st&keep=1")

		res, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "A1", res.AccessToken)

		form := h.lastForm(t)
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "abc", form.Get("code"))
		assert.Equal(t, "verifier-1", form.Get("code_verifier"))
		assert.Equal(t, redirectURI, form.Get("redirect_uri"))
		assert.Equal(t, "client-123", form.Get("client_id"))

		_, ok, err := h.store.Pending()
		require.NoError(t, err)
		assert.False(t, ok, "verifier slot must be empty")

		q := h.location.Current().Query()
		assert.Empty(t, q.Get("code"))
		assert.Empty(t, q.Get("state"))
		assert.Equal(t, "1", q.Get("keep"))

		rec, err := h.store.Get()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "R1", rec.RefreshToken)
	})

	t.Run("pending code beats refresh token", func(t *testing.T) {
		h := newHarness(t, issue("A2", "", 3600))
		require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))
		require.NoError(t, h.store.SavePending(session.PendingAuthorization{CodeVerifier: "v", State: "s"}))
		callback(t, h, "code=xyz&state=s")

		_, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "authorization_code", h.lastForm(t).Get("grant_type"))
	})

	t.Run("missing verifier is fatal", func(t *testing.T) {
		h := newHarness(t, issue("unused", "", 0))
		callback(t, h, "code=abc&state=s")

		_, err := h.ctrl.EnsureToken(context.Background())
		assert.ErrorIs(t, err, shared.ErrMissingVerifier)
		assert.Zero(t, h.transport.Count())
		assert.Empty(t, h.navigator.URLs(), "a corrupted flow must not redirect again")
		assert.Empty(t, h.location.Current().RawQuery)
	})

	t.Run("missing verifier does not block refresh afterwards", func(t *testing.T) {
		h := newHarness(t, issue("B", "", 3600))
		require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))
		callback(t, h, "code=abc&state=s")

		_, err := h.ctrl.EnsureToken(context.Background())
		require.ErrorIs(t, err, shared.ErrMissingVerifier)

		res, err := h.ctrl.EnsureToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "B", res.AccessToken)
		assert.Equal(t, "refresh_token", h.lastForm(t).Get("grant_type"))
	})

	t.Run("rejected code", func(t *testing.T) {
		h := newHarness(t, func(w http.ResponseWriter, _ url.Values) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		})
		require.NoError(t, h.store.SavePending(session.PendingAuthorization{CodeVerifier: "v", State: "s"}))
		callback(t, h, "code=used&state=s")

		_, err := h.ctrl.EnsureToken(context.Background())
		assert.ErrorIs(t, err, shared.ErrTokenExchange)
		assert.Contains(t, err.Error(), "invalid_grant")
		assert.Equal(t, 1, h.transport.Count(), "a rejected code is not retried")

		_, ok, err := h.store.Pending()
		require.NoError(t, err)
		assert.False(t, ok, "verifier is single use even after a failure")
		assert.Empty(t, h.location.Current().Query().Get("code"))
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t, issue("unused", "", 0))
		require.NoError(t, h.store.SavePending(session.PendingAuthorization{CodeVerifier: "v", State: "expected"}))
		callback(t, h, "code=abc&state=forged")

		_, err := h.ctrl.EnsureToken(context.Background())
		assert.ErrorIs(t, err, shared.ErrStateMismatch)
		assert.Zero(t, h.transport.Count())
	})
}

func TestEnsureToken_Concurrent(t *testing.T) {
	var hits atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, form url.Values) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		issue("B", "", 3600)(w, form)
	})
	require.NoError(t, h.storage.Set(session.KeyRefreshToken, "R"))

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.ctrl.EnsureToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = res.AccessToken
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load(), "overlapping calls share one refresh")
	for _, tok := range tokens {
		assert.Equal(t, "B", tok)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, issue("unused", "", 0))
	_, err := h.store.Put(session.Issued{AccessToken: "A", RefreshToken: "R", ExpiresIn: 90})
	require.NoError(t, err)

	st, err := h.ctrl.Status()
	require.NoError(t, err)
	assert.True(t, st.HasAccessToken)
	assert.True(t, st.HasRefreshToken)
	assert.Equal(t, 90*time.Second, st.ExpiresIn)
}

func TestTracker(t *testing.T) {
	loc, err := NewTracker(redirectURI)
	require.NoError(t, err)

	u := loc.Current()
	u.RawQuery = "code=mutated"
	assert.Empty(t, loc.Current().RawQuery, "Current returns a copy")

	next, _ := url.Parse(redirectURI + "?code=c&state=s&x=1")
	loc.Replace(next)
	stripParams(loc, "code", "state")
	assert.Equal(t, "x=1", loc.Current().RawQuery)
}

func TestLogsNeverCarryTokens(t *testing.T) {
	h := newHarness(t, issue("secret-access", "secret-refresh", 3600))

	_, err := h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	state, ok := h.ctrl.PendingState()
	require.True(t, ok)

	h.location.Replace(&url.URL{Scheme: "http", Host: "127.0.0.1:3000", Path: "/callback", RawQuery: "code=c1&state=" + state})
	res, err := h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "secret-access", res.AccessToken)

	h.clock.Advance(2 * time.Hour)
	_, err = h.ctrl.EnsureToken(context.Background())
	require.NoError(t, err)

	logs := h.logs.String()
	assert.Contains(t, logs, "[REDACTED]")
	assert.NotContains(t, logs, "secret-access")
	assert.NotContains(t, logs, "secret-refresh")
}

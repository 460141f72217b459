package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jammming/internal/auth"
	"github.com/desertthunder/jammming/internal/shared"
)

// Authorizer is the part of [auth.Controller] the callback needs.
type Authorizer interface {
	EnsureToken(ctx context.Context) (auth.Result, error)
	PendingState() (string, bool)
	Location() auth.Location
}

// CallbackResult is the outcome of one consent round-trip.
type CallbackResult struct {
	Result auth.Result
	err    error
}

func (c CallbackResult) Error() error {
	return c.err
}

// CallbackHandler receives the consent redirect, records it as the current location and lets the
// controller finish the exchange.
type CallbackHandler struct {
	path    string
	auth    Authorizer
	results chan CallbackResult
	logger  *log.Logger
}

// NewCallbackHandler creates a handler serving path.
func NewCallbackHandler(path string, authorizer Authorizer, logger *log.Logger) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		path:    path,
		auth:    authorizer,
		results: make(chan CallbackResult, 1),
		logger:  shared.WithLogger(logger, "component", "callback"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the consent redirect.
//
// A denial or a foreign state is reported without touching the tracked location. A callback
// with no authorization pending, such as a reload of the success page, is refused outright. Otherwise the
// full callback URL becomes the current location and [Authorizer.EnsureToken] performs the exchange.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		err := fmt.Errorf("%w: %s", shared.ErrConsentDenied, strings.TrimSpace(e+" "+q.Get("error_description")))
		h.logger.Warn("consent denied", "error", e)
		h.Send(CallbackResult{err: err})
		h.render(w, http.StatusBadRequest, "Authorization Denied", "Spotify did not grant access. You can close this window.")
		return
	}

	if q.Get("code") == "" {
		h.render(w, http.StatusBadRequest, "Missing Code", "The callback did not include an authorization code.")
		return
	}

	pending, ok := h.auth.PendingState()
	if !ok {
		h.logger.Warn("callback received with no authorization in progress")
		h.render(w, http.StatusConflict, "No Authorization In Progress", "This callback was already used or was not requested by this session.")
		return
	}
	if q.Get("state") != pending {
		h.logger.Warn("callback state does not match pending authorization")
		h.Send(CallbackResult{err: shared.ErrStateMismatch})
		h.render(w, http.StatusBadRequest, "Invalid State", "This callback does not belong to the current authorization request.")
		return
	}

	loc := h.auth.Location().Current()
	loc.RawQuery = r.URL.RawQuery
	h.auth.Location().Replace(loc)

	res, err := h.auth.EnsureToken(r.Context())
	if err == nil && res.Redirecting() {
		// joined the consent call that is still returning; the code is in place now
		res, err = h.auth.EnsureToken(r.Context())
	}
	if err == nil && res.AccessToken == "" {
		err = shared.ErrRedirectInFlight
	}
	if err != nil {
		h.Send(CallbackResult{err: err})
		h.render(w, http.StatusInternalServerError, "Authorization Failed", err.Error())
		return
	}

	h.Send(CallbackResult{Result: res})
	h.render(w, http.StatusOK, "✓ Authorization Successful", "You can close this window and return to the terminal.")
}

// Send publishes a result. If the previous result has not been consumed, it is replaced.
func (h *CallbackHandler) Send(result CallbackResult) {
	for {
		select {
		case h.results <- result:
			return
		default:
		}
		select {
		case <-h.results:
			h.logger.Debug("replaced unread callback result")
		default:
		}
	}
}

// Results delivers the outcome of each consent round-trip.
func (h *CallbackHandler) Results() <-chan CallbackResult {
	return h.results
}

// Wait blocks until the next callback result, the context is done or the server fails.
func (h *CallbackHandler) Wait(ctx context.Context, serverErrs <-chan error) (auth.Result, error) {
	select {
	case res := <-h.results:
		return res.Result, res.Error()
	case err, ok := <-serverErrs:
		if !ok || err == nil {
			err = errors.New("callback server stopped")
		}
		return auth.Result{}, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return auth.Result{}, fmt.Errorf("%w: no callback received", shared.ErrTimeout)
		}
		return auth.Result{}, ctx.Err()
	}
}

func (h *CallbackHandler) render(w http.ResponseWriter, status int, title, message string) {
	color := "#1DB954"
	if status >= 400 {
		color = "#E22134"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %[3]s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
    </div>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(message), color)
}

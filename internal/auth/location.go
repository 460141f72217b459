package auth

import (
	"fmt"
	"net/url"
	"sync"
)

// Location is the address the application was last entered at. The callback server moves
// it; the [Controller] reads its query and strips consumed parameters.
type Location interface {
	Current() *url.URL
	Replace(u *url.URL)
}

// Tracker is a concurrency-safe [Location].
type Tracker struct {
	mu  sync.RWMutex
	url *url.URL
}

// NewTracker starts tracking at base, normally the redirect URI without a query.
func NewTracker(base string) (*Tracker, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", base, err)
	}
	return &Tracker{url: u}, nil
}

// Current returns a copy of the tracked URL.
func (t *Tracker) Current() *url.URL {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u := *t.url
	return &u
}

// Replace swaps the tracked URL without keeping history.
func (t *Tracker) Replace(u *url.URL) {
	cp := *u
	t.mu.Lock()
	t.url = &cp
	t.mu.Unlock()
}

// stripParams removes the named query parameters from loc.
func stripParams(loc Location, names ...string) {
	u := loc.Current()
	q := u.Query()
	for _, n := range names {
		q.Del(n)
	}
	u.RawQuery = q.Encode()
	loc.Replace(u)
}

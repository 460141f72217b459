package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jammming/internal/auth"
	"github.com/desertthunder/jammming/internal/models"
	"github.com/desertthunder/jammming/internal/server"
	"github.com/desertthunder/jammming/internal/shared"
)

type fakeService struct {
	tracks  []models.Track
	queries []string
	saved   []string
	saveErr error
}

func (f *fakeService) Search(_ context.Context, q string) []models.Track {
	f.queries = append(f.queries, q)
	return f.tracks
}

func (f *fakeService) SavePlaylist(_ context.Context, name string, uris []string) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	f.saved = append(f.saved, name)
	return len(uris) > 0, nil
}

func (f *fakeService) Name() string { return "fake" }

type fakeTokens struct {
	results []auth.Result
	err     error
}

func (f *fakeTokens) EnsureToken(context.Context) (auth.Result, error) {
	if f.err != nil {
		return auth.Result{}, f.err
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func keyRune(r string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

// send feeds msg to the model and runs any returned command once, feeding back a [Msg] result.
func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	for cmd != nil {
		out := cmd()
		if _, ok := out.(Msg); !ok {
			return
		}
		_, cmd = m.Update(out)
	}
}

func sampleTracks() []models.Track {
	return []models.Track{
		{ID: "1", Name: "One More Time", Artist: "Daft Punk", Album: "Discovery", URI: "spotify:track:1"},
		{ID: "2", Name: "Aerodynamic", Artist: "Daft Punk", Album: "Discovery", URI: "spotify:track:2"},
	}
}

func newTestModel(svc *fakeService, tokens *fakeTokens, callbacks <-chan server.CallbackResult) *Model {
	m := NewModel(context.Background(), Options{Service: svc, Tokens: tokens, Callbacks: callbacks})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func authorized() *fakeTokens {
	return &fakeTokens{results: []auth.Result{{AccessToken: "A"}}}
}

func TestModel(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		m := newTestModel(svc, authorized(), nil)

		m.search.SetValue("  daft punk ")
		send(t, m, keyEnter)

		if len(svc.queries) != 1 || svc.queries[0] != "daft punk" {
			t.Fatalf("unexpected queries %v", svc.queries)
		}
		if len(m.results.Items()) != 2 {
			t.Errorf("expected 2 results, got %d", len(m.results.Items()))
		}
		if m.focus != ResultsFocus {
			t.Errorf("expected focus on results, got %v", m.focus)
		}
	})

	t.Run("Blank Search Skips Service", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		m := newTestModel(svc, authorized(), nil)

		m.search.SetValue("   ")
		send(t, m, keyEnter)

		if len(svc.queries) != 0 {
			t.Errorf("expected no search, got %v", svc.queries)
		}
	})

	t.Run("Add Deduplicates And Remove", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		m := newTestModel(svc, authorized(), nil)
		m.search.SetValue("daft")
		send(t, m, keyEnter)

		send(t, m, keyRune("a"))
		send(t, m, keyRune("a"))
		if got := len(m.Playlist().Tracks); got != 1 {
			t.Fatalf("expected 1 track after duplicate add, got %d", got)
		}

		item := m.results.Items()[0].(trackItem)
		if !item.added {
			t.Error("expected result to be marked as added")
		}

		send(t, m, keyTab)
		if m.focus != PlaylistFocus {
			t.Fatalf("expected playlist focus, got %v", m.focus)
		}
		send(t, m, keyRune("d"))
		if got := len(m.Playlist().Tracks); got != 0 {
			t.Errorf("expected empty playlist, got %d", got)
		}
	})

	t.Run("Rename And Save Resets", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		m := newTestModel(svc, authorized(), nil)
		m.search.SetValue("daft")
		send(t, m, keyEnter)
		send(t, m, keyRune("a"))

		send(t, m, keyRune("r"))
		if m.focus != RenameFocus {
			t.Fatalf("expected rename focus, got %v", m.focus)
		}
		m.rename.SetValue("Road Trip")
		send(t, m, keyEnter)
		if m.Playlist().Name != "Road Trip" {
			t.Fatalf("expected rename, got %q", m.Playlist().Name)
		}

		send(t, m, keyRune("s"))
		if len(svc.saved) != 1 || svc.saved[0] != "Road Trip" {
			t.Fatalf("unexpected saves %v", svc.saved)
		}
		if m.Playlist().Name != models.DefaultPlaylistName || len(m.Playlist().Tracks) != 0 {
			t.Errorf("expected playlist reset after save, got %+v", m.Playlist())
		}
		if !strings.Contains(m.View(), "Saved") {
			t.Error("expected success status in view")
		}
	})

	t.Run("Save Failure Keeps Playlist", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks(), saveErr: shared.ErrPlaylistCreate}
		m := newTestModel(svc, authorized(), nil)
		m.search.SetValue("daft")
		send(t, m, keyEnter)
		send(t, m, keyRune("a"))
		send(t, m, keyRune("s"))

		if !errors.Is(m.err, shared.ErrPlaylistCreate) {
			t.Errorf("expected ErrPlaylistCreate, got %v", m.err)
		}
		if len(m.Playlist().Tracks) != 1 {
			t.Error("expected playlist to be kept after a failed save")
		}
	})

	t.Run("Empty Playlist Is Not Saved", func(t *testing.T) {
		svc := &fakeService{}
		m := newTestModel(svc, authorized(), nil)
		m.setFocus(PlaylistFocus)

		send(t, m, keyRune("s"))
		if len(svc.saved) != 0 {
			t.Errorf("expected no save, got %v", svc.saved)
		}
		if !strings.Contains(m.status, "Nothing to save") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("Consent Then Replay", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		tokens := &fakeTokens{results: []auth.Result{
			{RedirectURL: "https://accounts.example.com/authorize"},
			{AccessToken: "A"},
		}}
		callbacks := make(chan server.CallbackResult, 1)
		callbacks <- server.CallbackResult{Result: auth.Result{AccessToken: "A"}}
		m := newTestModel(svc, tokens, callbacks)

		m.search.SetValue("daft")
		send(t, m, keyEnter)

		if len(svc.queries) != 1 {
			t.Fatalf("expected search to be replayed after consent, got %v", svc.queries)
		}
		if m.pending != actionNone {
			t.Errorf("expected pending action to be cleared, got %v", m.pending)
		}
		if len(m.results.Items()) != 2 {
			t.Errorf("expected results after replay, got %d", len(m.results.Items()))
		}
	})

	t.Run("Token Error", func(t *testing.T) {
		svc := &fakeService{tracks: sampleTracks()}
		m := newTestModel(svc, &fakeTokens{err: shared.ErrMissingVerifier}, nil)

		m.search.SetValue("daft")
		send(t, m, keyEnter)

		if !errors.Is(m.err, shared.ErrMissingVerifier) {
			t.Errorf("expected ErrMissingVerifier, got %v", m.err)
		}
		if len(svc.queries) != 0 {
			t.Error("expected no search without a token")
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m := newTestModel(&fakeService{}, authorized(), nil)
		m.setFocus(ResultsFocus)

		_, cmd := m.Update(keyRune("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("Typing q In Search Does Not Quit", func(t *testing.T) {
		m := newTestModel(&fakeService{}, authorized(), nil)

		m.Update(keyRune("q"))
		if m.search.Value() != "q" {
			t.Errorf("expected q in search box, got %q", m.search.Value())
		}
	})
}

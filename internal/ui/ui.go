package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/jammming/internal/models"
	"github.com/desertthunder/jammming/internal/server"
	"github.com/desertthunder/jammming/internal/services"
	"github.com/desertthunder/jammming/internal/shared"
)

// Focus is the widget receiving key presses.
type Focus int

const (
	SearchFocus Focus = iota
	ResultsFocus
	PlaylistFocus
	RenameFocus
)

// Options holds the TUI dependencies.
type Options struct {
	Service   services.Service
	Tokens    services.TokenProvider
	Callbacks <-chan server.CallbackResult
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	service   services.Service
	tokens    services.TokenProvider
	callbacks <-chan server.CallbackResult

	focus    Focus
	search   textinput.Model
	rename   textinput.Model
	results  list.Model
	tracks   list.Model
	found    []models.Track
	playlist *models.Playlist

	lastQuery string
	pending   action
	busy      bool
	status    string
	err       error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with an empty playlist.
func NewModel(ctx context.Context, opts Options) *Model {
	search := textinput.New()
	search.Placeholder = "Song, album or artist"
	search.Prompt = "Search: "
	search.Focus()

	rename := textinput.New()
	rename.Prompt = "Name: "
	rename.CharLimit = 100

	m := &Model{
		ctx:       ctx,
		service:   opts.Service,
		tokens:    opts.Tokens,
		callbacks: opts.Callbacks,
		focus:     SearchFocus,
		search:    search,
		rename:    rename,
		results:   newTrackList("Results"),
		tracks:    newTrackList(models.DefaultPlaylistName),
		playlist:  models.NewPlaylist(),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	return m
}

// Init starts the cursor blinking in the search box.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case SearchFocus:
			return m.handleSearchKeys(msg)
		case RenameFocus:
			return m.handleRenameKeys(msg)
		default:
			return m.handlePaneKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSearchDone:
		data := msg.data.(searchDone)
		m.busy = false
		m.found = data.tracks
		m.refreshLists()
		m.status = fmt.Sprintf("%d results for %q", len(data.tracks), data.query)
		if len(data.tracks) > 0 {
			m.setFocus(ResultsFocus)
		}
		return m, nil

	case MsgSaveDone:
		data := msg.data.(saveDone)
		m.busy = false
		switch {
		case data.err != nil:
			m.err = data.err
		case !data.ok:
			m.status = styles.warn.Render("Nothing to save: name the playlist and add tracks first")
		default:
			m.playlist.Reset()
			m.refreshLists()
			m.status = styles.ok.Render(fmt.Sprintf("✓ Saved %q with %d tracks", data.name, data.count))
		}
		return m, nil

	case MsgAuthPending:
		data := msg.data.(authPending)
		m.pending = data.then
		m.status = styles.warn.Render("→ Waiting for Spotify authorization in your browser...") +
			"\n" + styles.help.Render(data.url)
		return m, m.waitForCallback()

	case MsgCallback:
		res := msg.data.(server.CallbackResult)
		then := m.pending
		m.pending = actionNone
		if err := res.Error(); err != nil {
			m.busy = false
			m.err = err
			return m, nil
		}
		m.status = styles.ok.Render("✓ Authorized")
		switch then {
		case actionSearch:
			return m, m.runSearch(m.lastQuery)
		case actionSave:
			return m, m.runSave()
		}
		m.busy = false
		return m, nil

	case MsgError:
		m.busy = false
		m.pending = actionNone
		m.err = msg.data.(error)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		query := strings.TrimSpace(m.search.Value())
		if query == "" {
			m.found = nil
			m.refreshLists()
			return m, nil
		}
		m.lastQuery = query
		return m, m.runSearch(query)
	case key.Matches(msg, m.keys.next), key.Matches(msg, m.keys.back):
		m.setFocus(ResultsFocus)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleRenameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		if name := strings.TrimSpace(m.rename.Value()); name != "" {
			m.playlist.Rename(name)
			m.tracks.Title = name
		}
		m.setFocus(PlaylistFocus)
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.setFocus(PlaylistFocus)
		return m, nil
	}

	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

func (m *Model) handlePaneKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.setFocus(SearchFocus)
		return m, nil
	case key.Matches(msg, m.keys.next):
		if m.focus == ResultsFocus {
			m.setFocus(PlaylistFocus)
		} else {
			m.setFocus(SearchFocus)
		}
		return m, nil
	case key.Matches(msg, m.keys.rename):
		m.rename.SetValue(m.playlist.Name)
		m.setFocus(RenameFocus)
		return m, nil
	case key.Matches(msg, m.keys.save):
		if m.busy {
			return m, nil
		}
		return m, m.runSave()
	}

	if m.focus == ResultsFocus && key.Matches(msg, m.keys.add) {
		if item, ok := m.results.SelectedItem().(trackItem); ok {
			if m.playlist.Add(item.track) {
				m.err = nil
				m.status = fmt.Sprintf("Added %s", item.track.Name)
			}
			m.refreshLists()
		}
		return m, nil
	}

	if m.focus == PlaylistFocus && key.Matches(msg, m.keys.remove) {
		if item, ok := m.tracks.SelectedItem().(trackItem); ok {
			m.playlist.Remove(item.track.ID)
			m.status = fmt.Sprintf("Removed %s", item.track.Name)
			m.refreshLists()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == ResultsFocus {
		m.results, cmd = m.results.Update(msg)
	} else {
		m.tracks, cmd = m.tracks.Update(msg)
	}
	return m, cmd
}

// authorize returns a non-nil message when the action cannot run yet.
func (m *Model) authorize(then action) tea.Msg {
	if m.tokens == nil {
		return nil
	}
	res, err := m.tokens.EnsureToken(m.ctx)
	if err != nil {
		return errorMsg(err)
	}
	if res.Redirecting() {
		return authPendingMsg(res.RedirectURL, then)
	}
	return nil
}

func (m *Model) runSearch(query string) tea.Cmd {
	m.busy = true
	m.err = nil
	m.status = fmt.Sprintf("Searching for %q...", query)

	return func() tea.Msg {
		if msg := m.authorize(actionSearch); msg != nil {
			return msg
		}
		return searchDoneMsg(query, m.service.Search(m.ctx, query))
	}
}

func (m *Model) runSave() tea.Cmd {
	if err := m.playlist.Validate(); err != nil {
		m.status = styles.warn.Render("Nothing to save: name the playlist and add tracks first")
		return nil
	}

	name, uris := m.playlist.Name, m.playlist.URIs()
	m.busy = true
	m.err = nil
	m.status = fmt.Sprintf("Saving %q...", name)

	return func() tea.Msg {
		if msg := m.authorize(actionSave); msg != nil {
			return msg
		}
		ok, err := m.service.SavePlaylist(m.ctx, name, uris)
		return saveDoneMsg(name, len(uris), ok, err)
	}
}

func (m *Model) waitForCallback() tea.Cmd {
	callbacks := m.callbacks
	ctx := m.ctx
	return func() tea.Msg {
		if callbacks == nil {
			return errorMsg(shared.ErrRedirectInFlight)
		}
		select {
		case res := <-callbacks:
			return callbackMsg(res)
		case <-ctx.Done():
			return errorMsg(ctx.Err())
		}
	}
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.search.Blur()
	m.rename.Blur()
	switch f {
	case SearchFocus:
		m.search.Focus()
	case RenameFocus:
		m.rename.Focus()
	}
}

func (m *Model) refreshLists() {
	m.results.SetItems(trackItems(m.found, m.playlist.Contains))
	m.tracks.SetItems(trackItems(m.playlist.Tracks, nil))
	m.tracks.Title = m.playlist.Name
}

func (m *Model) resize() {
	paneWidth := max(m.width/2-4, 20)
	paneHeight := max(m.height-10, 5)
	m.results.SetSize(paneWidth, paneHeight)
	m.tracks.SetSize(paneWidth, paneHeight)
	m.search.Width = max(m.width-12, 20)
}

// View renders the search box, both panes, a status line and help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Jammming"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	left, right := styles.blurred, styles.blurred
	switch m.focus {
	case ResultsFocus:
		left = styles.focused
	case PlaylistFocus, RenameFocus:
		right = styles.focused
	}

	playlistPane := m.tracks.View()
	if m.focus == RenameFocus {
		playlistPane = m.rename.View() + "\n\n" + playlistPane
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left.Render(m.results.View()), right.Render(playlistPane)))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render("Error: " + describeError(m.err)))
	case m.status != "":
		b.WriteString(m.status)
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// Playlist returns the playlist under construction.
func (m *Model) Playlist() *models.Playlist {
	return m.playlist
}

func describeError(err error) string {
	switch {
	case errors.Is(err, shared.ErrConsentDenied):
		return "Spotify access was denied"
	case errors.Is(err, shared.ErrRedirectInFlight):
		return "authorization required, restart the session"
	}
	return err.Error()
}

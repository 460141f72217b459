package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jammming/internal/models"
	"github.com/desertthunder/jammming/internal/server"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSearchDone MsgKind = iota
	MsgSaveDone
	MsgAuthPending
	MsgCallback
	MsgError
)

// action is work parked while the consent round-trip completes.
type action int

const (
	actionNone action = iota
	actionSearch
	actionSave
)

type searchDone struct {
	query  string
	tracks []models.Track
}

type saveDone struct {
	name  string
	count int
	ok    bool
	err   error
}

type authPending struct {
	url  string
	then action
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(query string, tracks []models.Track) Msg {
	return Msg{kind: MsgSearchDone, data: searchDone{query, tracks}}
}

// saveDoneMsg is the constructor for [MsgSaveDone]
func saveDoneMsg(name string, count int, ok bool, err error) Msg {
	return Msg{kind: MsgSaveDone, data: saveDone{name, count, ok, err}}
}

// authPendingMsg is the constructor for [MsgAuthPending]
func authPendingMsg(url string, then action) Msg {
	return Msg{kind: MsgAuthPending, data: authPending{url, then}}
}

// callbackMsg is the constructor for [MsgCallback]
func callbackMsg(result server.CallbackResult) Msg {
	return Msg{kind: MsgCallback, data: result}
}

// errorMsg is the constructor for [MsgError]
func errorMsg(err error) Msg {
	return Msg{kind: MsgError, data: err}
}

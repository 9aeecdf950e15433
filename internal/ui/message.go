package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/tasks"
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
	MsgProgressUpdate
	MsgRecommendDone
	MsgFavorited
)

type searchResult struct {
	query  string
	tracks []models.Track
	err    error
}

type recommendResult struct {
	seedID string
	resp   *models.AggregateResponse
	err    error
}

type favoriteResult struct {
	trackID string
	err     error
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(query string, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgSearchDone, data: searchResult{query, tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// recommendDoneMsg is the constructor for [MsgRecommendDone]
func recommendDoneMsg(result recommendResult) Msg {
	return Msg{kind: MsgRecommendDone, data: result}
}

// favoritedMsg is the constructor for [MsgFavorited]
func favoritedMsg(trackID string, err error) Msg {
	return Msg{kind: MsgFavorited, data: favoriteResult{trackID, err}}
}

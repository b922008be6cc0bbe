package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/tasks"
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
	MsgProgressUpdate MsgKind = iota
	MsgReconcileComplete
	MsgBrowserOpened
)

type reconcileResult struct {
	items []models.UnreadItem
	err   error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// reconcileCompleteMsg is the constructor for [MsgReconcileComplete]
func reconcileCompleteMsg(items []models.UnreadItem, err error) Msg {
	return Msg{kind: MsgReconcileComplete, data: reconcileResult{items: items, err: err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(target string, err error) Msg {
	return Msg{
		kind: MsgBrowserOpened,
		data: struct {
			target string
			err    error
		}{target, err},
	}
}

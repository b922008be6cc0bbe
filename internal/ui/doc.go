// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ProgressView] : a spinner and progress bar fed by the reconciler's progress channel
//  2. [ResultView] : a filterable list of titles with unread chapters
//
// Selecting a title opens its catalog page in the system browser.
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/anidex/internal/models"
)

var (
	_ list.Item = unreadItem{}
)

// unreadItem wraps [models.UnreadItem] to implement [list.Item].
type unreadItem struct {
	item models.UnreadItem
}

func (i unreadItem) FilterValue() string { return i.item.Title }
func (i unreadItem) Title() string       { return i.item.Title }
func (i unreadItem) Description() string {
	return fmt.Sprintf("current: %d • latest: %s • %s new",
		i.item.Progress, i.item.LatestString(), models.FormatUnit(i.item.Behind()))
}

func toListItems(items []models.UnreadItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = unreadItem{item: it}
	}
	return out
}

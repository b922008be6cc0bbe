package tasks

import (
	"fmt"

	"github.com/desertthunder/anidex/internal/models"
)

// ProgressUpdate represents a progress event during a reconciliation run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLists Phase = iota
	ResolveEntries
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchLists:
		return "fetch_lists"
	case ResolveEntries:
		return "resolve_entries"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchingListsUpdate(username string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLists,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching reading lists for %s...", username),
	}
}

func fetchedListsUpdate(lists []models.ReadingList, entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d entries across %d lists", entries, len(lists)),
		Data:    lists,
	}
}

// resolvedEntryUpdate reports one processed entry; item is nil when the user is caught up or the title is unknown.
func resolvedEntryUpdate(step, total int, entry models.ReadingEntry, item *models.UnreadItem) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s", step, total, entry.Title)
	if item != nil {
		msg = fmt.Sprintf("[%d/%d] %s (%s new)", step, total, entry.Title, models.FormatUnit(item.Behind()))
	}
	return ProgressUpdate{
		Phase:   ResolveEntries,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    item,
	}
}

func completeUpdate(total int, items []models.UnreadItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("%d of %d titles have unread chapters", len(items), total),
		Data:    items,
	}
}

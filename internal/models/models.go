// package models defines the data model for the reading-progress reconciler
package models

import (
	"fmt"
	"strconv"
)

// OneshotUnit is the latest unit reported for a work whose feed item has no chapter number.
const OneshotUnit = 1.0

// ReadingList is a named group of entries as returned by the progress-tracking service.
type ReadingList struct {
	Name    string
	Entries []ReadingEntry
}

// ReadingEntry is a single title on a reading list.
type ReadingEntry struct {
	ExternalID int64  // id on the progress-tracking service
	Title      string // romanized title, used as the catalog search filter
	Progress   int    // recorded units read, never negative
	Format     string // media format reported by the tracker (MANGA, ONE_SHOT, NOVEL, ...)
}

// CatalogMatch identifies a catalog entry.
type CatalogMatch struct {
	CatalogID string
}

// LatestUnit is the newest published unit number for a catalog entry in one language.
type LatestUnit struct {
	Number float64
}

// UnreadItem reports an entry where the user is behind.
type UnreadItem struct {
	CatalogID  string
	Title      string
	ExternalID int64
	Progress   int
	Latest     float64
}

// NewUnreadItem builds an [UnreadItem] when entry's progress is strictly below latest.
//
// The boolean is false when the user is caught up (or ahead).
func NewUnreadItem(entry ReadingEntry, match CatalogMatch, latest LatestUnit) (UnreadItem, bool) {
	if float64(entry.Progress) >= latest.Number {
		return UnreadItem{}, false
	}
	return UnreadItem{
		CatalogID:  match.CatalogID,
		Title:      entry.Title,
		ExternalID: entry.ExternalID,
		Progress:   entry.Progress,
		Latest:     latest.Number,
	}, true
}

// Behind returns how many units separate recorded progress from the latest release.
func (u UnreadItem) Behind() float64 {
	return u.Latest - float64(u.Progress)
}

// LatestString formats the latest unit without a trailing ".0" for whole chapters.
func (u UnreadItem) LatestString() string {
	return FormatUnit(u.Latest)
}

func (u UnreadItem) String() string {
	return fmt.Sprintf("%s: current: %d, latest: %s", u.Title, u.Progress, u.LatestString())
}

// FormatUnit renders a unit number the way catalogs print chapters ("12", "12.5").
func FormatUnit(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

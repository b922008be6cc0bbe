// package services defines the interfaces for the remote services consulted during reconciliation
//
// AniList (progress tracking), MangaDex (catalog)
package services

import (
	"context"

	"github.com/desertthunder/anidex/internal/models"
)

// Executor issues a [Request] and returns its buffered [Response].
//
// [RetryingClient] is the production implementation.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ProgressLister fetches a user's current reading lists from the progress-tracking service.
type ProgressLister interface {
	// FetchLists returns every list of the user's "currently reading" collection, in server order.
	FetchLists(ctx context.Context, username string) ([]models.ReadingList, error)
}

// CatalogResolver finds the catalog entry that cross-references an external id.
type CatalogResolver interface {
	// Resolve searches the catalog by title and returns the first result whose cross-reference equals externalID.
	// The boolean is false when no result matches; that is not an error.
	Resolve(ctx context.Context, title string, externalID int64) (models.CatalogMatch, bool, error)
}

// ProgressFetcher retrieves the newest published unit for a catalog entry.
type ProgressFetcher interface {
	// FetchLatest returns the highest unit number translated into language.
	// The boolean is false when nothing has been released in that language.
	FetchLatest(ctx context.Context, catalogID, language string) (models.LatestUnit, bool, error)
}

package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/services"
	"github.com/desertthunder/anidex/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Engine reconciles a user's reading progress against the catalog.
type Engine interface {
	// Reconcile returns every entry on the user's current lists whose recorded progress is behind the latest release in language.
	Reconcile(ctx context.Context, progress chan<- ProgressUpdate, username, language string, workers int) ([]models.UnreadItem, error)
}

// Reconciler implements [Engine] on top of the three service interfaces.
type Reconciler struct {
	lists    services.ProgressLister
	resolver services.CatalogResolver
	fetcher  services.ProgressFetcher
	logger   *log.Logger
}

// NewReconciler creates a [Reconciler]; a nil logger discards output.
func NewReconciler(lists services.ProgressLister, resolver services.CatalogResolver, fetcher services.ProgressFetcher, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{
		lists:    lists,
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Reconcile fetches the user's lists and checks each entry against the catalog.
//
// Lists are processed one after another. Within a list, entries are split into
// contiguous partitions that run concurrently; results keep list order then entry order.
// The first failure cancels the remaining work and no partial results are returned.
func (r *Reconciler) Reconcile(ctx context.Context, progress chan<- ProgressUpdate, username, language string, workers int) ([]models.UnreadItem, error) {
	if r.lists == nil || r.resolver == nil || r.fetcher == nil {
		return nil, fmt.Errorf("%w: reconciler is missing a service", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(language) == "" {
		return nil, fmt.Errorf("%w: language", shared.ErrMissingArgument)
	}

	sendProgress(progress, fetchingListsUpdate(username))

	lists, err := r.lists.FetchLists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reading lists: %w", err)
	}

	total := 0
	for _, l := range lists {
		total += len(l.Entries)
	}
	sendProgress(progress, fetchedListsUpdate(lists, total))
	r.logger.Info("reconciling", "user", username, "language", language, "lists", len(lists), "entries", total, "workers", max(workers, 1))

	var done atomic.Int64
	items := []models.UnreadItem{}

	for _, l := range lists {
		found, err := r.reconcileList(ctx, progress, l, language, workers, total, &done)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", l.Name, err)
		}
		items = append(items, found...)
	}

	sendProgress(progress, completeUpdate(total, items))
	r.logger.Info("reconciled", "user", username, "unread", len(items), "checked", total)

	return items, nil
}

// reconcileList runs one list's partitions in an errgroup and joins their results in partition order.
func (r *Reconciler) reconcileList(ctx context.Context, progress chan<- ProgressUpdate, list models.ReadingList, language string, workers, total int, done *atomic.Int64) ([]models.UnreadItem, error) {
	ranges := Partition(len(list.Entries), workers)
	if len(ranges) == 0 {
		return nil, nil
	}

	results := make([][]models.UnreadItem, len(ranges))
	g, gctx := errgroup.WithContext(ctx)

	for i, rg := range ranges {
		g.Go(func() error {
			found, err := r.reconcileRange(gctx, progress, list.Entries[rg.Start:rg.End], language, total, done)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []models.UnreadItem
	for _, found := range results {
		items = append(items, found...)
	}
	return items, nil
}

// reconcileRange checks entries sequentially, stopping at the first error or cancellation.
func (r *Reconciler) reconcileRange(ctx context.Context, progress chan<- ProgressUpdate, entries []models.ReadingEntry, language string, total int, done *atomic.Int64) ([]models.UnreadItem, error) {
	var items []models.UnreadItem

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, ok, err := r.check(ctx, entry, language)
		if err != nil {
			return nil, err
		}

		step := int(done.Add(1))
		if ok {
			items = append(items, item)
			sendProgress(progress, resolvedEntryUpdate(step, total, entry, &item))
		} else {
			sendProgress(progress, resolvedEntryUpdate(step, total, entry, nil))
		}
	}

	return items, nil
}

// check resolves a single entry. The boolean is true only when the user is behind.
func (r *Reconciler) check(ctx context.Context, entry models.ReadingEntry, language string) (models.UnreadItem, bool, error) {
	match, ok, err := r.resolver.Resolve(ctx, entry.Title, entry.ExternalID)
	if err != nil {
		return models.UnreadItem{}, false, fmt.Errorf("resolve %q (%d): %w", entry.Title, entry.ExternalID, err)
	}
	if !ok {
		r.logger.Debug("no catalog match", "title", entry.Title, "external_id", entry.ExternalID)
		return models.UnreadItem{}, false, nil
	}

	latest, ok, err := r.fetcher.FetchLatest(ctx, match.CatalogID, language)
	if err != nil {
		return models.UnreadItem{}, false, fmt.Errorf("latest chapter of %q (%s): %w", entry.Title, match.CatalogID, err)
	}
	if !ok {
		r.logger.Debug("nothing released in language", "title", entry.Title, "catalog_id", match.CatalogID, "language", language)
		return models.UnreadItem{}, false, nil
	}

	item, behind := models.NewUnreadItem(entry, match, latest)
	return item, behind, nil
}

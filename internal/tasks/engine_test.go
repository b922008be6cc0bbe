package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/services"
	"github.com/desertthunder/anidex/internal/shared"
	tu "github.com/desertthunder/anidex/internal/testing"
)

func entry(id int64, title string, progress int) models.ReadingEntry {
	return models.ReadingEntry{ExternalID: id, Title: title, Progress: progress, Format: "MANGA"}
}

func TestReconciler(t *testing.T) {
	t.Run("reports exactly the entries that are behind", func(t *testing.T) {
		lists := &tu.MockLister{Lists: []models.ReadingList{
			{Name: "Reading", Entries: []models.ReadingEntry{
				entry(1, "Behind", 5),
				entry(2, "Caught Up", 10),
				entry(3, "Ahead", 12),
				entry(4, "Unknown", 0),
				entry(5, "Untranslated", 0),
				entry(6, "Half Chapter", 12),
			}},
			{Name: "Custom", Entries: []models.ReadingEntry{
				entry(7, "Oneshot", 0),
			}},
		}}
		resolver := &tu.MockResolver{Matches: map[int64]string{
			1: "m1", 2: "m2", 3: "m3", 5: "m5", 6: "m6", 7: "m7",
		}}
		fetcher := &tu.MockFetcher{Latest: map[string]float64{
			"m1": 7, "m2": 10, "m3": 11, "m6": 12.5, "m7": models.OneshotUnit,
		}}

		for _, workers := range []int{0, 1, 2, 3, 8} {
			t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
				engine := NewReconciler(lists, resolver, fetcher, nil)
				items, err := engine.Reconcile(context.Background(), nil, "reader", "en", workers)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				want := []models.UnreadItem{
					{CatalogID: "m1", Title: "Behind", ExternalID: 1, Progress: 5, Latest: 7},
					{CatalogID: "m6", Title: "Half Chapter", ExternalID: 6, Progress: 12, Latest: 12.5},
					{CatalogID: "m7", Title: "Oneshot", ExternalID: 7, Progress: 0, Latest: 1},
				}
				if !reflect.DeepEqual(items, want) {
					t.Errorf("unexpected items:\n got: %+v\nwant: %+v", items, want)
				}
			})
		}
	})

	t.Run("passes language to fetcher", func(t *testing.T) {
		fetcher := &tu.MockFetcher{Latest: map[string]float64{"m1": 2}}
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{{Name: "R", Entries: []models.ReadingEntry{entry(1, "A", 1)}}}},
			&tu.MockResolver{Matches: map[int64]string{1: "m1"}},
			fetcher,
			nil,
		)

		if _, err := engine.Reconcile(context.Background(), nil, "reader", "pt-br", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(fetcher.Languages, []string{"pt-br"}) {
			t.Errorf("expected language pt-br, got %v", fetcher.Languages)
		}
	})

	t.Run("empty lists", func(t *testing.T) {
		engine := NewReconciler(&tu.MockLister{}, &tu.MockResolver{}, &tu.MockFetcher{}, nil)
		items, err := engine.Reconcile(context.Background(), nil, "reader", "en", 4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("expected empty non-nil result, got %#v", items)
		}
	})

	t.Run("argument validation", func(t *testing.T) {
		engine := NewReconciler(&tu.MockLister{}, &tu.MockResolver{}, &tu.MockFetcher{}, nil)
		if _, err := engine.Reconcile(context.Background(), nil, "reader", " ", 1); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		incomplete := NewReconciler(&tu.MockLister{}, nil, &tu.MockFetcher{}, nil)
		if _, err := incomplete.Reconcile(context.Background(), nil, "reader", "en", 1); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("list fetch failure", func(t *testing.T) {
		cause := &shared.HTTPError{StatusCode: http.StatusNotFound, URL: "http://anilist"}
		engine := NewReconciler(&tu.MockLister{Err: cause}, &tu.MockResolver{}, &tu.MockFetcher{}, nil)

		items, err := engine.Reconcile(context.Background(), nil, "reader", "en", 1)
		if !errors.Is(err, shared.ErrHTTPStatus) {
			t.Errorf("expected ErrHTTPStatus, got %v", err)
		}
		if items != nil {
			t.Errorf("expected no items, got %v", items)
		}
	})

	t.Run("first error cancels sibling partitions", func(t *testing.T) {
		cause := &shared.DecodeError{Source: "mangadex", Reason: "bad link"}
		resolver := &tu.MockResolver{
			Errs:  map[int64]error{1: cause},
			Block: true,
		}
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{{Name: "R", Entries: []models.ReadingEntry{
				entry(1, "Broken", 0),
				entry(2, "Never Reached", 0),
				entry(3, "In Flight", 0),
				entry(4, "Never Started", 0),
			}}}},
			resolver,
			&tu.MockFetcher{},
			nil,
		)

		items, err := engine.Reconcile(context.Background(), nil, "reader", "en", 2)
		if !errors.Is(err, cause) {
			t.Fatalf("expected the first failure, got %v", err)
		}
		if items != nil {
			t.Errorf("expected partial results to be discarded, got %v", items)
		}

		for _, id := range resolver.Calls {
			if id == 2 || id == 4 {
				t.Errorf("entry %d should not have been resolved after cancellation", id)
			}
		}
	})

	t.Run("fetch failure aborts", func(t *testing.T) {
		cause := &shared.TransportError{Method: "GET", URL: "http://mangadex", Err: errors.New("reset")}
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{{Name: "R", Entries: []models.ReadingEntry{entry(1, "A", 0)}}}},
			&tu.MockResolver{Matches: map[int64]string{1: "m1"}},
			&tu.MockFetcher{Errs: map[string]error{"m1": cause}},
			nil,
		)

		if _, err := engine.Reconcile(context.Background(), nil, "reader", "en", 1); !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resolver := &tu.MockResolver{}
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{{Name: "R", Entries: []models.ReadingEntry{entry(1, "A", 0)}}}},
			resolver,
			&tu.MockFetcher{},
			nil,
		)

		if _, err := engine.Reconcile(ctx, nil, "reader", "en", 1); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if resolver.CallCount() != 0 {
			t.Errorf("expected no resolve calls, got %d", resolver.CallCount())
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 32)
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{
				{Name: "A", Entries: []models.ReadingEntry{entry(1, "One", 0), entry(2, "Two", 0)}},
				{Name: "B", Entries: []models.ReadingEntry{entry(3, "Three", 0)}},
			}},
			&tu.MockResolver{Matches: map[int64]string{1: "m1", 3: "m3"}},
			&tu.MockFetcher{Latest: map[string]float64{"m1": 4, "m3": 0}},
			nil,
		)

		if _, err := engine.Reconcile(context.Background(), progress, "reader", "en", 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		var steps []int
		for u := range progress {
			phases = append(phases, u.Phase)
			if u.Phase == ResolveEntries {
				steps = append(steps, u.Step)
				if u.Total != 3 {
					t.Errorf("expected total 3, got %d", u.Total)
				}
			}
		}

		if phases[0] != FetchLists || phases[len(phases)-1] != Complete {
			t.Errorf("unexpected phase order: %v", phases)
		}
		slices.Sort(steps)
		if !slices.Equal(steps, []int{1, 2, 3}) {
			t.Errorf("expected one update per entry, got steps %v", steps)
		}
	})

	t.Run("full progress channel never blocks", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		engine := NewReconciler(
			&tu.MockLister{Lists: []models.ReadingList{{Name: "R", Entries: []models.ReadingEntry{entry(1, "A", 0)}}}},
			&tu.MockResolver{},
			&tu.MockFetcher{},
			nil,
		)

		if _, err := engine.Reconcile(context.Background(), progress, "reader", "en", 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchLists:     "fetch_lists",
		ResolveEntries: "resolve_entries",
		Complete:       "complete",
		Phase(99):      "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}

// newServices wires the production services to stub AniList and MangaDex servers.
func newServices(t *testing.T, feed string) *Reconciler {
	t.Helper()

	anilist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"MediaListCollection":{"lists":[{"name":"Reading","entries":[
			{"progress":5,"media":{"id":42,"format":"MANGA","title":{"romaji":"X"}}}
		]}]}}}`))
	}))
	t.Cleanup(anilist.Close)

	mangadex := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/manga":
			if r.URL.Query().Get("title") != "X" {
				t.Errorf("expected search for X, got %q", r.URL.Query().Get("title"))
			}
			w.Write([]byte(`{"result":"ok","data":[{"id":"mdx-42","attributes":{"links":{"al":"42"}}}]}`))
		case strings.HasPrefix(r.URL.Path, "/manga/mdx-42/feed"):
			w.Write([]byte(feed))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(mangadex.Close)

	catalog, err := services.NewMangaDexService(services.MangaDexOpts{APIURL: mangadex.URL})
	if err != nil {
		t.Fatalf("failed to create catalog service: %v", err)
	}
	tracker := services.NewAniListService(services.AniListOpts{Endpoint: anilist.URL})

	return NewReconciler(tracker, catalog, catalog, nil)
}

func TestReconcilerEndToEnd(t *testing.T) {
	t.Run("entry behind latest chapter", func(t *testing.T) {
		engine := newServices(t, `{"result":"ok","data":[{"id":"c","attributes":{"chapter":"7"}}]}`)

		items, err := engine.Reconcile(context.Background(), nil, "reader", "en", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.UnreadItem{{CatalogID: "mdx-42", Title: "X", ExternalID: 42, Progress: 5, Latest: 7.0}}
		if !reflect.DeepEqual(items, want) {
			t.Errorf("unexpected items:\n got: %+v\nwant: %+v", items, want)
		}
	})

	t.Run("nothing released in language", func(t *testing.T) {
		engine := newServices(t, `{"result":"ok","data":[]}`)

		items, err := engine.Reconcile(context.Background(), nil, "reader", "en", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected no items, got %+v", items)
		}
	})
}

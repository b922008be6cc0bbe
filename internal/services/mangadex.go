// MangaDex API implementation of [CatalogResolver] and [ProgressFetcher]
//
// API reference: https://api.mangadex.org/docs/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/shared"
)

const (
	defaultMangaDexURL  = "https://api.mangadex.org"
	defaultLinkKey      = "al"
	defaultSearchLimit  = 10
	mangaDexSourceName  = "mangadex"
	popularityOrderKey  = "order[followedCount]"
	chapterOrderKey     = "order[chapter]"
	languageFilterKey   = "translatedLanguage[]"
	descendingDirection = "desc"
)

// MangaDexCollection is the envelope shared by list endpoints (search, feed).
type MangaDexCollection struct {
	Result   string             `json:"result"`
	Response string             `json:"response"`
	Data     *[]json.RawMessage `json:"data"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Total    int                `json:"total"`
}

// MangaDexManga is the subset of a manga entity needed for cross-referencing.
//
// Links is kept raw: the server encodes an empty map as [] and may send null.
type MangaDexManga struct {
	ID         string `json:"id"`
	Attributes *struct {
		Links json.RawMessage `json:"links"`
	} `json:"attributes"`
}

// MangaDexChapter is the subset of a chapter entity needed to read its number.
type MangaDexChapter struct {
	ID         string `json:"id"`
	Attributes *struct {
		Chapter *string `json:"chapter"`
	} `json:"attributes"`
}

// MangaDexOpts configures a [MangaDexService].
type MangaDexOpts struct {
	APIURL      string
	LinkKey     string // attributes.links key naming the AniList id
	SearchLimit int
	Client      Executor
	Logger      *log.Logger
}

// MangaDexService implements [CatalogResolver] and [ProgressFetcher] against the MangaDex REST API.
type MangaDexService struct {
	baseURL     *url.URL
	linkKey     string
	searchLimit int
	client      Executor
	logger      *log.Logger
}

// NewMangaDexService creates a MangaDex service, applying defaults for empty options.
func NewMangaDexService(opts MangaDexOpts) (*MangaDexService, error) {
	if opts.APIURL == "" {
		opts.APIURL = defaultMangaDexURL
	}
	if opts.LinkKey == "" {
		opts.LinkKey = defaultLinkKey
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewRetryingClient(ClientOpts{Logger: opts.Logger})
	}

	baseURL, err := url.Parse(opts.APIURL)
	if err != nil {
		return nil, fmt.Errorf("%w: mangadex api url: %v", shared.ErrInvalidConfig, err)
	}

	return &MangaDexService{
		baseURL:     baseURL,
		linkKey:     opts.LinkKey,
		searchLimit: opts.SearchLimit,
		client:      opts.Client,
		logger:      opts.Logger,
	}, nil
}

// NewMangaDexFromConfig wires a [MangaDexService] from configuration.
func NewMangaDexFromConfig(cfg *shared.Config, logger *log.Logger) (*MangaDexService, error) {
	return NewMangaDexService(MangaDexOpts{
		APIURL:      cfg.MangaDex.APIURL,
		LinkKey:     cfg.MangaDex.LinkKey,
		SearchLimit: cfg.MangaDex.SearchLimit,
		Logger:      logger,
		Client: NewRetryingClient(ClientOpts{
			HTTPClient: &http.Client{Timeout: cfg.Client.Timeout.Duration},
			UserAgent:  cfg.Client.UserAgent,
			Limiter:    newLimiter(cfg.MangaDex.RequestsPerSecond),
			Logger:     logger,
		}),
	})
}

// Name returns the service name.
func (m *MangaDexService) Name() string {
	return "MangaDex"
}

// Resolve searches manga by title, most-followed first, and returns the first result linking to externalID.
//
// Results without a link are skipped. A link that is not an integer is a [shared.DecodeError].
func (m *MangaDexService) Resolve(ctx context.Context, title string, externalID int64) (models.CatalogMatch, bool, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set(popularityOrderKey, descendingDirection)
	params.Set("limit", strconv.Itoa(m.searchLimit))

	results, err := m.list(ctx, m.baseURL.JoinPath("manga"), params)
	if err != nil {
		return models.CatalogMatch{}, false, fmt.Errorf("mangadex: search %q: %w", title, err)
	}

	for i, raw := range results {
		var manga MangaDexManga
		if err := json.Unmarshal(raw, &manga); err != nil {
			return models.CatalogMatch{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("search result %d", i), Err: err}
		}
		if manga.Attributes == nil {
			return models.CatalogMatch{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("search result %d has no attributes", i)}
		}

		linked, ok, err := m.crossReference(manga.Attributes.Links)
		if err != nil {
			return models.CatalogMatch{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("manga %s", manga.ID), Err: err}
		}
		if !ok || linked != externalID {
			continue
		}

		if manga.ID == "" {
			return models.CatalogMatch{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("search result %d has no id", i)}
		}

		m.logger.Debug("resolved title", "title", title, "external_id", externalID, "catalog_id", manga.ID, "rank", i)
		return models.CatalogMatch{CatalogID: manga.ID}, true, nil
	}

	m.logger.Debug("title not in catalog", "title", title, "external_id", externalID, "candidates", len(results))
	return models.CatalogMatch{}, false, nil
}

// crossReference extracts the tracker id from a raw links value.
//
// The boolean is false when the manga carries no link for the tracker.
func (m *MangaDexService) crossReference(raw json.RawMessage) (int64, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, "[") {
		return 0, false, nil
	}

	var links map[string]json.RawMessage
	if err := json.Unmarshal(raw, &links); err != nil {
		return 0, false, fmt.Errorf("links: %w", err)
	}

	value, ok := links[m.linkKey]
	if !ok || string(value) == "null" {
		return 0, false, nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return 0, false, fmt.Errorf("links.%s is not a string: %w", m.linkKey, err)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("links.%s %q is not an integer id: %w", m.linkKey, s, err)
	}

	return id, true, nil
}

// FetchLatest reads the single highest-numbered chapter translated into language.
//
// A chapter without a number is a oneshot and counts as [models.OneshotUnit].
func (m *MangaDexService) FetchLatest(ctx context.Context, catalogID, language string) (models.LatestUnit, bool, error) {
	if strings.TrimSpace(catalogID) == "" {
		return models.LatestUnit{}, false, fmt.Errorf("%w: catalog id", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set(languageFilterKey, language)
	params.Set(chapterOrderKey, descendingDirection)
	params.Set("limit", "1")

	results, err := m.list(ctx, m.baseURL.JoinPath("manga", catalogID, "feed"), params)
	if err != nil {
		return models.LatestUnit{}, false, fmt.Errorf("mangadex: feed %s: %w", catalogID, err)
	}

	if len(results) == 0 {
		return models.LatestUnit{}, false, nil
	}

	var chapter MangaDexChapter
	if err := json.Unmarshal(results[0], &chapter); err != nil {
		return models.LatestUnit{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("feed %s", catalogID), Err: err}
	}
	if chapter.Attributes == nil {
		return models.LatestUnit{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("feed %s chapter has no attributes", catalogID)}
	}

	if chapter.Attributes.Chapter == nil {
		return models.LatestUnit{Number: models.OneshotUnit}, true, nil
	}

	number, err := parseUnit(*chapter.Attributes.Chapter)
	if err != nil {
		return models.LatestUnit{}, false, &shared.DecodeError{Source: mangaDexSourceName, Reason: fmt.Sprintf("feed %s", catalogID), Err: err}
	}

	return models.LatestUnit{Number: number}, true, nil
}

// parseUnit parses a chapter number, rejecting values that cannot be a chapter.
func parseUnit(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("chapter %q is not a number: %w", s, err)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, fmt.Errorf("chapter %q is out of range", s)
	}
	return n, nil
}

// list GETs a collection endpoint and returns its data array.
func (m *MangaDexService) list(ctx context.Context, endpoint *url.URL, params url.Values) ([]json.RawMessage, error) {
	endpoint.RawQuery = params.Encode()

	resp, err := m.client.Execute(ctx, &Request{
		Method: http.MethodGet,
		URL:    endpoint.String(),
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return nil, err
	}

	var collection MangaDexCollection
	if err := json.Unmarshal(resp.Body, &collection); err != nil {
		return nil, &shared.DecodeError{Source: mangaDexSourceName, Err: err}
	}
	if collection.Data == nil {
		return nil, &shared.DecodeError{Source: mangaDexSourceName, Reason: "response has no data array"}
	}

	return *collection.Data, nil
}

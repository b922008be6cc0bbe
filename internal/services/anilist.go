// AniList GraphQL implementation of [ProgressLister]
//
// Query reference: https://docs.anilist.co/reference/query/medialistcollection
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultAniListURL = "https://graphql.anilist.co"

	// collectionField must match the root field requested by readingListQuery exactly.
	collectionField = "MediaListCollection"
)

// readingListQuery requests the user's CURRENT manga lists.
//
// MediaListCollection has no format argument, so media.format is selected and novels are dropped client-side.
const readingListQuery = `query ($userName: String) {
  MediaListCollection(userName: $userName, type: MANGA, status: CURRENT) {
    lists {
      name
      entries {
        progress
        media {
          id
          format
          title {
            romaji
          }
        }
      }
    }
  }
}`

type aniListVariables struct {
	UserName string `json:"userName"`
}

type aniListRequest struct {
	Query     string           `json:"query"`
	Variables aniListVariables `json:"variables"`
}

// AniListTitle is the title block of a media object.
type AniListTitle struct {
	Romaji string `json:"romaji"`
}

// AniListMedia is the subset of the Media type requested by the reading-list query.
type AniListMedia struct {
	ID     int64        `json:"id"`
	Format string       `json:"format"`
	Title  AniListTitle `json:"title"`
}

// AniListEntry is one MediaList row; progress is nullable in the schema.
type AniListEntry struct {
	Progress *int          `json:"progress"`
	Media    *AniListMedia `json:"media"`
}

// AniListList is a named group of entries (e.g. "Reading" or a custom list).
type AniListList struct {
	Name    string         `json:"name"`
	Entries []AniListEntry `json:"entries"`
}

// AniListCollection is the MediaListCollection object.
type AniListCollection struct {
	Lists []AniListList `json:"lists"`
}

type aniListError struct {
	Message string `json:"message"`
}

type aniListResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []aniListError             `json:"errors"`
}

// AniListOpts configures an [AniListService].
type AniListOpts struct {
	Endpoint       string
	ExcludeFormats []string
	Client         Executor
	Logger         *log.Logger
}

// AniListService implements [ProgressLister] against the AniList GraphQL API.
type AniListService struct {
	endpoint string
	exclude  map[string]struct{}
	client   Executor
	logger   *log.Logger
}

// NewAniListService creates an AniList service; an empty endpoint uses the public API.
func NewAniListService(opts AniListOpts) *AniListService {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultAniListURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Client == nil {
		opts.Client = NewRetryingClient(ClientOpts{Logger: opts.Logger})
	}

	exclude := make(map[string]struct{}, len(opts.ExcludeFormats))
	for _, f := range opts.ExcludeFormats {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			exclude[f] = struct{}{}
		}
	}

	return &AniListService{
		endpoint: opts.Endpoint,
		exclude:  exclude,
		client:   opts.Client,
		logger:   opts.Logger,
	}
}

// NewAniListFromConfig wires an [AniListService] from configuration.
//
// When an access token is configured, requests carry it as a bearer token via [oauth2.NewClient].
func NewAniListFromConfig(ctx context.Context, cfg *shared.Config, logger *log.Logger) *AniListService {
	return NewAniListService(AniListOpts{
		Endpoint:       cfg.AniList.GraphQLURL,
		ExcludeFormats: cfg.AniList.ExcludeFormats,
		Logger:         logger,
		Client: NewRetryingClient(ClientOpts{
			HTTPClient: NewAniListHTTPClient(ctx, cfg.AniList.AccessToken, cfg.Client.Timeout.Duration),
			UserAgent:  cfg.Client.UserAgent,
			Limiter:    newLimiter(cfg.AniList.RequestsPerSecond),
			Logger:     logger,
		}),
	})
}

// NewAniListHTTPClient returns an [http.Client] with the given timeout, authenticated when token is set.
func NewAniListHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var client *http.Client
	if token = strings.TrimSpace(token); token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, src)
	} else {
		client = &http.Client{}
	}
	client.Timeout = timeout
	return client
}

// Name returns the service name.
func (a *AniListService) Name() string {
	return "AniList"
}

// FetchLists retrieves the user's CURRENT manga lists in a single request.
//
// The endpoint is expected to return the complete collection; chunked pagination is not followed.
func (a *AniListService) FetchLists(ctx context.Context, username string) ([]models.ReadingList, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	body, err := json.Marshal(aniListRequest{
		Query:     readingListQuery,
		Variables: aniListVariables{UserName: username},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	resp, err := a.client.Execute(ctx, &Request{
		Method: http.MethodPost,
		URL:    a.endpoint,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"Accept":       []string{"application/json"},
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("anilist: fetch reading lists for %s: %w", username, err)
	}

	collection, err := decodeCollection(resp.Body)
	if err != nil {
		return nil, err
	}

	lists, skipped, err := a.toReadingLists(collection)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("fetched reading lists", "user", username, "lists", len(lists), "excluded", skipped)
	return lists, nil
}

// decodeCollection unwraps data.MediaListCollection, matching the field name case-sensitively.
func decodeCollection(body []byte) (*AniListCollection, error) {
	var envelope aniListResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &shared.DecodeError{Source: "anilist", Err: err}
	}

	raw, ok := envelope.Data[collectionField]
	if !ok || string(raw) == "null" {
		reason := fmt.Sprintf("response has no data.%s", collectionField)
		if len(envelope.Errors) > 0 {
			msgs := make([]string, len(envelope.Errors))
			for i, e := range envelope.Errors {
				msgs[i] = e.Message
			}
			reason = fmt.Sprintf("%s (%s)", reason, strings.Join(msgs, "; "))
		}
		return nil, &shared.DecodeError{Source: "anilist", Reason: reason}
	}

	var collection AniListCollection
	if err := json.Unmarshal(raw, &collection); err != nil {
		return nil, &shared.DecodeError{Source: "anilist", Reason: collectionField, Err: err}
	}

	return &collection, nil
}

func (a *AniListService) toReadingLists(collection *AniListCollection) ([]models.ReadingList, int, error) {
	lists := make([]models.ReadingList, 0, len(collection.Lists))
	skipped := 0

	for li, l := range collection.Lists {
		entries := make([]models.ReadingEntry, 0, len(l.Entries))
		for ei, e := range l.Entries {
			if e.Media == nil || e.Media.ID <= 0 {
				return nil, 0, &shared.DecodeError{
					Source: "anilist",
					Reason: fmt.Sprintf("list %d entry %d has no media id", li, ei),
				}
			}

			progress := 0
			if e.Progress != nil {
				progress = *e.Progress
			}
			if progress < 0 {
				return nil, 0, &shared.DecodeError{
					Source: "anilist",
					Reason: fmt.Sprintf("media %d has negative progress %d", e.Media.ID, progress),
				}
			}

			if _, drop := a.exclude[strings.ToUpper(e.Media.Format)]; drop {
				skipped++
				continue
			}

			entries = append(entries, models.ReadingEntry{
				ExternalID: e.Media.ID,
				Title:      e.Media.Title.Romaji,
				Progress:   progress,
				Format:     e.Media.Format,
			})
		}
		lists = append(lists, models.ReadingList{Name: l.Name, Entries: entries})
	}

	return lists, skipped, nil
}

// newLimiter returns a pacing limiter for rps, or nil when pacing is disabled.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

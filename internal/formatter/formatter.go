// package formatter renders reconciliation results as plain text, JSON, CSV, or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/shared"
)

const defaultSiteURL = "https://mangadex.org"

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// Formats lists every supported [Format] in help-text order.
var Formats = []Format{Text, JSON, CSV, Markdown}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return Text, nil
	case Text, JSON, CSV, Markdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %v)", shared.ErrInvalidArgument, s, Formats)
	}
}

// Options controls rendering.
type Options struct {
	SiteURL string // catalog site used to build title links
	Links   bool   // wrap text output titles in terminal hyperlinks
}

// TitleURL builds the public page URL for a catalog id.
func TitleURL(siteURL, catalogID string) string {
	if siteURL == "" {
		siteURL = defaultSiteURL
	}
	return strings.TrimRight(siteURL, "/") + "/title/" + url.PathEscape(catalogID)
}

// Hyperlink wraps text in an OSC 8 terminal hyperlink to target.
//
// Control characters are stripped from both parts so a title cannot end the escape early.
func Hyperlink(target, text string) string {
	return "\x1b]8;;" + stripControl(target) + "\x1b\\" + stripControl(text) + "\x1b]8;;\x1b\\"
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}

// Render encodes items in format f.
func Render(f Format, items []models.UnreadItem, opts Options) ([]byte, error) {
	switch f {
	case Text, "":
		return ExportToText(items, opts)
	case JSON:
		return ExportToJSON(items, opts)
	case CSV:
		return ExportToCSV(items, opts)
	case Markdown:
		return ExportToMarkdown(items, opts)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToText renders one line per item: "Title: current: N, latest: M".
func ExportToText(items []models.UnreadItem, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	for _, item := range items {
		title := item.Title
		if opts.Links {
			title = Hyperlink(TitleURL(opts.SiteURL, item.CatalogID), item.Title)
		}
		buf.WriteString(fmt.Sprintf("%s: current: %d, latest: %s\n", title, item.Progress, item.LatestString()))
	}

	return buf.Bytes(), nil
}

type jsonItem struct {
	Title      string  `json:"title"`
	CatalogID  string  `json:"catalog_id"`
	ExternalID int64   `json:"external_id"`
	Progress   int     `json:"progress"`
	Latest     float64 `json:"latest"`
	Behind     float64 `json:"behind"`
	URL        string  `json:"url"`
}

// ExportToJSON renders items as an indented JSON array.
func ExportToJSON(items []models.UnreadItem, opts Options) ([]byte, error) {
	out := make([]jsonItem, len(items))
	for i, item := range items {
		out[i] = jsonItem{
			Title:      item.Title,
			CatalogID:  item.CatalogID,
			ExternalID: item.ExternalID,
			Progress:   item.Progress,
			Latest:     item.Latest,
			Behind:     item.Behind(),
			URL:        TitleURL(opts.SiteURL, item.CatalogID),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders items with columns: Title, Catalog ID, External ID, Progress, Latest, URL
func ExportToCSV(items []models.UnreadItem, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Catalog ID", "External ID", "Progress", "Latest", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Title,
			item.CatalogID,
			strconv.FormatInt(item.ExternalID, 10),
			strconv.Itoa(item.Progress),
			item.LatestString(),
			TitleURL(opts.SiteURL, item.CatalogID),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders items as a checklist of linked titles.
func ExportToMarkdown(items []models.UnreadItem, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Unread chapters\n\n")
	buf.WriteString(fmt.Sprintf("**Titles**: %d\n\n", len(items)))

	for _, item := range items {
		buf.WriteString(fmt.Sprintf("- [ ] [%s](%s) (current: %d, latest: %s)\n",
			escapeMarkdown(item.Title), TitleURL(opts.SiteURL, item.CatalogID), item.Progress, item.LatestString()))
	}

	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// WriteExport renders items and writes them to path, returning the path written.
func WriteExport(f Format, items []models.UnreadItem, opts Options, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Render(f, items, opts)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

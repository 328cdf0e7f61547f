// Package source defines the marketplace listing source boundary and its
// feed-backed implementation.
package source

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ebay_watcher/internal/model"
)

// ErrUnavailable wraps any failure to obtain listings for a keyword. The
// engine skips the keyword for the current cycle and retries on the next.
var ErrUnavailable = errors.New("listing source unavailable")

// Source returns the current listings visible for a keyword.
type Source interface {
	Fetch(ctx context.Context, keyword string) ([]model.Listing, error)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedSource polls a marketplace search feed per keyword and maps its
// entries to structured listings.
type FeedSource struct {
	client      HTTPClient
	urlTemplate string // contains {query}
	now         func() time.Time
}

// New creates a FeedSource. urlTemplate must contain a {query} placeholder
// that is replaced with the URL-escaped keyword.
func New(client HTTPClient, urlTemplate string) *FeedSource {
	return &FeedSource{
		client:      client,
		urlTemplate: urlTemplate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Fetch downloads and parses the search feed for the given keyword.
// All failures wrap ErrUnavailable.
func (s *FeedSource) Fetch(ctx context.Context, keyword string) ([]model.Listing, error) {
	feedURL := strings.ReplaceAll(s.urlTemplate, "{query}", url.QueryEscape(keyword))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "ListingWatchBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", ErrUnavailable, err)
	}

	now := s.now()
	listings := make([]model.Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		firstSeen := now
		if item.PublishedParsed != nil {
			firstSeen = item.PublishedParsed.UTC()
		}
		listings = append(listings, model.Listing{
			ID:          ItemID(item),
			Keyword:     keyword,
			Title:       item.Title,
			PriceEUR:    extractEUR(item.Title + " " + item.Description),
			URL:         item.Link,
			FirstSeenAt: firstSeen,
		})
	}
	return listings, nil
}

// ItemID returns the listing identifier for a feed item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// German price format: thousands separated by dots, comma as decimal mark.
var eurAmountRe = regexp.MustCompile(`EUR\s*([\d.]+(?:,\d+)?)`)

// extractEUR returns the first EUR amount found in raw, or 0 when none
// parses. "EUR 1.234,56" yields 1234.56.
func extractEUR(raw string) float64 {
	m := eurAmountRe.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	normalized := strings.ReplaceAll(m[1], ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}
	return v
}

// Package sources collects bid opportunities from the configured
// external feeds and merges them into one deduplicated pool.
package sources

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/keith/bid-finder/internal/models"
)

// Source searches one external feed for opportunities matching the
// given keywords, looking back the given number of days.
type Source interface {
	Name() string
	Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error)
}

// FetchedDocument is the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

var htmlSanitizer = bluemonday.UGCPolicy()

// htmlToText strips markup and collapses whitespace. Malformed HTML
// falls back to the sanitized input.
func htmlToText(html string) string {
	sanitized := htmlSanitizer.Sanitize(html)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return cleanText(sanitized)
	}
	return cleanText(doc.Text())
}

// cleanText collapses runs of whitespace into single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText cuts a string to max length, appending ellipsis if
// truncated.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}

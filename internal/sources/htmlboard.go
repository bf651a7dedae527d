package sources

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/models"
)

// HTMLBoardSource scrapes a tender or job board described entirely by
// CSS selectors in the registry, so new boards need configuration
// rather than code.
type HTMLBoardSource struct {
	cfg     SourceConfig
	fetcher *CollyFetcher
	log     *zap.Logger
}

func NewHTMLBoardSource(cfg SourceConfig, log *zap.Logger) *HTMLBoardSource {
	return &HTMLBoardSource{
		cfg:     cfg,
		fetcher: FetcherWithConfig(cfg.Fetch, log),
		log:     log,
	}
}

func (s *HTMLBoardSource) Name() string { return s.cfg.Name }

func (s *HTMLBoardSource) Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error) {
	sel := s.cfg.Selectors
	if sel.Container == "" {
		s.log.Warn("html board source has no container selector", zap.String("source", s.cfg.ID))
		return nil, nil
	}

	c := s.fetcher.buildCollector(nil)

	var opportunities []models.BidOpportunity
	c.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		title := cleanText(e.ChildText(sel.Title))
		if title == "" {
			title = cleanText(e.Text)
		}

		link := ""
		if sel.Link != "" && sel.Link != "." {
			link = e.ChildAttr(sel.Link, "href")
		} else {
			link = e.Attr("href")
		}
		if link != "" && !strings.HasPrefix(link, "http") {
			link = e.Request.AbsoluteURL(link)
		}
		if title == "" || link == "" {
			return
		}

		opp := models.BidOpportunity{
			Title:         title,
			Description:   cleanText(e.ChildText(sel.Description)),
			Agency:        cleanText(e.ChildText(sel.Agency)),
			OpportunityID: boardItemID(s.cfg.ID, link),
			URL:           link,
			Source:        s.cfg.Name,
		}
		opportunities = append(opportunities, opp)
	})

	visitErr := c.Visit(s.cfg.BaseURL)
	c.Wait()
	if visitErr != nil && len(opportunities) == 0 {
		return nil, visitErr
	}

	// Boards that only expose a title in the listing need the detail
	// page for any text worth matching against.
	if sel.Description == "" {
		s.enrichFromDetailPages(ctx, opportunities)
	}

	s.log.Info("html board scrape complete",
		zap.String("source", s.cfg.ID),
		zap.Int("items", len(opportunities)))
	return classify.FilterRelevant(dedupeByID(opportunities), keywords), nil
}

// maxDetailFetches bounds detail-page requests per scrape so slow
// boards cannot stall a collection run.
const maxDetailFetches = 10

func (s *HTMLBoardSource) enrichFromDetailPages(ctx context.Context, opportunities []models.BidOpportunity) {
	for i := range opportunities {
		if i == maxDetailFetches {
			return
		}
		doc, err := s.fetcher.Fetch(ctx, opportunities[i].URL)
		if err != nil {
			s.log.Warn("detail fetch failed",
				zap.String("url", opportunities[i].URL),
				zap.Error(err))
			continue
		}
		body, err := io.ReadAll(doc.Body)
		doc.Body.Close()
		if err != nil {
			continue
		}
		opportunities[i].Description = truncateText(htmlToText(string(body)), 500)
	}
}

// boardItemID derives a stable id from the item URL. Boards rarely
// publish identifiers, and the URL is the one stable handle.
func boardItemID(sourceID, link string) string {
	sum := sha1.Sum([]byte(link))
	return sourceID + "-" + hex.EncodeToString(sum[:8])
}

package sources

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/models"
)

// Collector fans searches out to every configured source and merges
// the results into one deduplicated pool.
type Collector struct {
	sources []Source
	log     *zap.Logger
}

func NewCollector(sources []Source, log *zap.Logger) *Collector {
	return &Collector{sources: sources, log: log}
}

// Collect runs every source concurrently and merges the results. The
// per-source result slices are concatenated in configured source order
// before first-seen deduplication, so the merged pool is the same
// regardless of which source finishes first. A failing source is
// logged and contributes nothing; maxOpportunities <= 0 means no cap.
func (c *Collector) Collect(ctx context.Context, keywords []string, daysBack, maxOpportunities int) []models.BidOpportunity {
	results := make([][]models.BidOpportunity, len(c.sources))

	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			found, err := src.Search(ctx, keywords, daysBack)
			if err != nil {
				c.log.Warn("source search failed",
					zap.String("source", src.Name()),
					zap.Error(err))
				return
			}
			c.log.Info("source search complete",
				zap.String("source", src.Name()),
				zap.Int("opportunities", len(found)))
			results[i] = found
		}(i, src)
	}
	wg.Wait()

	var merged []models.BidOpportunity
	for _, found := range results {
		merged = append(merged, found...)
	}

	unique := classify.Dedupe(merged)
	if maxOpportunities > 0 && len(unique) > maxOpportunities {
		unique = unique[:maxOpportunities]
	}

	c.log.Info("collection complete",
		zap.Int("sources", len(c.sources)),
		zap.Int("merged", len(merged)),
		zap.Int("unique", len(unique)))
	return unique
}

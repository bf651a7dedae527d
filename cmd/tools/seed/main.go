// seed loads the built-in sample opportunities into the database so the
// API has data to serve before any live source is configured.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/db"
	"github.com/keith/bid-finder/internal/logger"
	"github.com/keith/bid-finder/internal/sources"
)

func main() {
	zl, err := logger.New()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, zl); err != nil {
		zl.Fatal("Migration failed", zap.Error(err))
	}

	collector := sources.NewCollector([]sources.Source{
		sources.NewSampleSource(zl),
		sources.NewUgandaSampleSource(zl),
	}, zl)

	opps := collector.Collect(ctx, nil, 30, 0)
	store := db.NewStore(pool)
	inserted, err := store.SaveOpportunities(ctx, opps)
	if err != nil {
		zl.Fatal("Seed failed", zap.Error(err))
	}

	zl.Info("Seed complete", zap.Int("collected", len(opps)), zap.Int("inserted", inserted))
}

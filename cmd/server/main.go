package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/api"
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

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, zl); err != nil {
		zl.Fatal("Migration failed", zap.Error(err))
	}

	registry, err := sources.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		zl.Fatal("Failed to load source registry", zap.Error(err))
	}
	srcs, err := registry.Build(zl)
	if err != nil {
		zl.Fatal("Failed to build sources", zap.Error(err))
	}
	collector := sources.NewCollector(srcs, zl)

	aiClient := ai.NewClient(os.Getenv("OPENAI_API_KEY"))

	srv := api.NewServer(pool, collector, aiClient, zl)
	zl.Info("Server starting", zap.String("port", port))
	if err := srv.Start(port); err != nil {
		zl.Fatal("Server stopped", zap.Error(err))
	}
}

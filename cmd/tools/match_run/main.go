// match_run is the end-to-end CLI: process profile documents, collect
// opportunities from every configured source, score them, and print the
// ranked results. Pass -save to also persist opportunities and match
// results to the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/db"
	"github.com/keith/bid-finder/internal/logger"
	"github.com/keith/bid-finder/internal/match"
	"github.com/keith/bid-finder/internal/profile"
	"github.com/keith/bid-finder/internal/sources"
)

func main() {
	docsDir := flag.String("docs", "./documents", "directory of company profile documents")
	daysBack := flag.Int("days-back", 30, "how many days back to search")
	maxOpps := flag.Int("max", 0, "cap on collected opportunities (0 = no cap)")
	quick := flag.Bool("quick", false, "skip AI analysis and use heuristic scoring only")
	budget := flag.Duration("ai-budget", 5*time.Minute, "total wall-clock budget for AI analysis")
	topN := flag.Int("top", 20, "number of results to print")
	save := flag.Bool("save", false, "persist opportunities and match results to the database")
	flag.Parse()

	zl, err := logger.New()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()

	processor := profile.NewProcessor(zl)
	docs := processor.ProcessDir(*docsDir)
	if len(docs) == 0 {
		zl.Fatal("No processable documents found", zap.String("dir", *docsDir))
	}
	companyProfile := profile.Build(docs)
	zl.Info("Profile built",
		zap.String("company", companyProfile.CompanyName),
		zap.Int("documents", companyProfile.DocumentCount),
		zap.Int("keywords", len(companyProfile.TechnicalKeywords)))

	registry, err := sources.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		zl.Fatal("Failed to load source registry", zap.Error(err))
	}
	srcs, err := registry.Build(zl)
	if err != nil {
		zl.Fatal("Failed to build sources", zap.Error(err))
	}
	collector := sources.NewCollector(srcs, zl)

	opps := collector.Collect(ctx, classify.SearchKeywords(), *daysBack, *maxOpps)
	if len(opps) == 0 {
		zl.Warn("No opportunities collected")
		return
	}

	aiClient := ai.NewClient(os.Getenv("OPENAI_API_KEY"))
	matcher := match.New(aiClient, zl)
	matcher.SetProfile(companyProfile)

	results := matcher.MatchAll(ctx, opps, !*quick, *budget)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Score", "Conf", "Apply", "Title", "Agency", "Due", "Source"})

	shown := results
	if len(shown) > *topN {
		shown = shown[:*topN]
	}
	for _, r := range shown {
		due := "-"
		if r.Opportunity.DueDate != nil {
			due = r.Opportunity.DueDate.Format("2006-01-02")
		}
		apply := ""
		if r.ShouldApply {
			apply = "yes"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%.2f", r.MatchScore),
			r.Confidence,
			apply,
			truncate(r.Opportunity.Title, 60),
			truncate(r.Opportunity.Agency, 30),
			due,
			r.Opportunity.Source,
		})
	}
	t.Render()

	counts := map[string]int{}
	applicable := 0
	for _, r := range results {
		counts[r.Confidence]++
		if r.ShouldApply {
			applicable++
		}
	}
	fmt.Printf("\n%d opportunities scored: %d High, %d Medium, %d Low confidence; %d worth applying to\n",
		len(results), counts["High"], counts["Medium"], counts["Low"], applicable)

	if !*save {
		return
	}

	pool, err := db.Connect(ctx)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, zl); err != nil {
		zl.Fatal("Migration failed", zap.Error(err))
	}

	store := db.NewStore(pool)
	inserted, err := store.SaveOpportunities(ctx, opps)
	if err != nil {
		zl.Fatal("Failed to save opportunities", zap.Error(err))
	}
	saved, skipped, err := store.SaveMatchResults(ctx, results)
	if err != nil {
		zl.Fatal("Failed to save match results", zap.Error(err))
	}
	zl.Info("Run persisted",
		zap.Int("opportunities_inserted", inserted),
		zap.Int("results_saved", saved),
		zap.Int("results_skipped", skipped))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/db"
	"github.com/keith/bid-finder/internal/match"
	"github.com/keith/bid-finder/internal/models"
	"github.com/keith/bid-finder/internal/profile"
	"github.com/keith/bid-finder/internal/sources"
)

const maxTrackedJobs = 100

type Server struct {
	Store     *db.Store
	Echo      *echo.Echo
	DB        *pgxpool.Pool
	AI        *ai.Client
	Collector *sources.Collector
	Matcher   *match.Matcher
	Processor *profile.Processor

	log *zap.Logger

	profileMu sync.Mutex
	profile   *models.CompanyProfile

	jobMu    sync.Mutex
	jobs     map[string]*backgroundJob
	jobOrder []string
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool, collector *sources.Collector, aiClient *ai.Client, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	s := &Server{
		DB:        pool,
		Store:     db.NewStore(pool),
		Echo:      e,
		AI:        aiClient,
		Collector: collector,
		Matcher:   match.New(aiClient, log),
		Processor: profile.NewProcessor(log),
		log:       log,
		jobs:      make(map[string]*backgroundJob),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:id", s.handleGetOpportunity)
	api.GET("/sources", s.handleGetSources)
	api.GET("/stats", s.handleGetStats)
	api.GET("/matches", s.handleListMatches)
	api.GET("/profile", s.handleGetProfile)

	// Admin routes (collection, profile processing, matching)
	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/documents/process", s.handleProcessDocuments)
	admin.POST("/opportunities/search", s.handleSearchOpportunities)
	admin.POST("/opportunities/match", s.handleMatchNow)
	admin.POST("/match-jobs", s.handleStartMatchJob)
	admin.GET("/jobs/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	q := c.QueryParam("q")

	limit := 20
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	var isGovernment, isJobPosting *bool
	if raw := c.QueryParam("is_government"); raw != "" {
		val := raw == "true"
		isGovernment = &val
	}
	if raw := c.QueryParam("is_job_posting"); raw != "" {
		val := raw == "true"
		isJobPosting = &val
	}

	var dueWithinDays int
	if v, err := strconv.Atoi(c.QueryParam("due_within_days")); err == nil && v > 0 {
		dueWithinDays = v
	}

	// Semantic ordering when an embedding can be produced for the query.
	var queryEmbedding []float32
	if q != "" && s.AI != nil {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		if err != nil {
			s.log.Warn("query embedding failed, using keyword ranking", zap.Error(err))
		} else {
			queryEmbedding = vec
		}
	}

	result, err := s.Store.ListOpportunities(c.Request().Context(), db.ListParams{
		Query:          q,
		QueryEmbedding: queryEmbedding,
		Source:         c.QueryParam("source"),
		IsGovernment:   isGovernment,
		IsJobPosting:   isJobPosting,
		Location:       c.QueryParam("location"),
		DueWithinDays:  dueWithinDays,
		Limit:          limit,
		Offset:         offset,
		SortBy:         c.QueryParam("sort"),
	})
	if err != nil {
		s.log.Error("list opportunities failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	opp, err := s.Store.GetOpportunity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleGetSources(c echo.Context) error {
	sources, err := s.Store.GetSources(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListMatches(c echo.Context) error {
	limit := 50
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	shouldApplyOnly := c.QueryParam("should_apply") == "true"

	matches, err := s.Store.ListMatches(c.Request().Context(), limit, shouldApplyOnly)
	if err != nil {
		s.log.Error("list matches failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) handleGetProfile(c echo.Context) error {
	s.profileMu.Lock()
	p := s.profile
	s.profileMu.Unlock()

	if p == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No company profile loaded. POST /api/v1/documents/process first."})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"company_name":       p.CompanyName,
		"document_count":     p.DocumentCount,
		"technical_keywords": p.TechnicalKeywords,
		"content_length":     len(p.AllContent),
	})
}

func (s *Server) handleProcessDocuments(c echo.Context) error {
	dir := strings.TrimSpace(c.QueryParam("dir"))
	if dir == "" {
		dir = os.Getenv("DOCUMENTS_DIR")
	}
	if dir == "" {
		dir = "./documents"
	}

	docs := s.Processor.ProcessDir(dir)
	if len(docs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("no processable documents in %s", dir)})
	}

	p := profile.Build(docs)

	s.profileMu.Lock()
	s.profile = p
	s.profileMu.Unlock()
	s.Matcher.SetProfile(p)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":        "Profile processing complete",
		"company_name":   p.CompanyName,
		"document_count": p.DocumentCount,
		"keywords":       len(p.TechnicalKeywords),
	})
}

func (s *Server) handleSearchOpportunities(c echo.Context) error {
	daysBack := 30
	if v, err := strconv.Atoi(c.QueryParam("days_back")); err == nil && v > 0 && v <= 365 {
		daysBack = v
	}
	maxOpportunities := 0
	if v, err := strconv.Atoi(c.QueryParam("max_opportunities")); err == nil && v > 0 {
		maxOpportunities = v
	}

	keywords := splitCSV(c.QueryParam("keywords"))
	if len(keywords) == 0 {
		keywords = searchKeywordsForProfile(s.currentProfile())
	}

	opps := s.Collector.Collect(c.Request().Context(), keywords, daysBack, maxOpportunities)

	inserted, err := s.Store.SaveOpportunities(c.Request().Context(), opps)
	if err != nil {
		s.log.Error("save opportunities failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	embedded := 0
	if s.AI != nil && inserted > 0 {
		embedded, err = s.Store.EmbedMissing(c.Request().Context(), s.AI, inserted)
		if err != nil {
			s.log.Warn("embedding backfill incomplete", zap.Int("embedded", embedded), zap.Error(err))
		}
	}

	resp := map[string]interface{}{
		"message":   "Opportunity search complete",
		"collected": len(opps),
		"inserted":  inserted,
		"embedded":  embedded,
	}

	// quick_search scores the collected batch heuristically in-line,
	// giving an immediate ranking without spending AI budget.
	if c.QueryParam("quick_search") == "true" && s.currentProfile() != nil {
		results := s.Matcher.MatchAll(c.Request().Context(), opps, false, 0)
		if len(results) > 20 {
			results = results[:20]
		}
		resp["quick_matches"] = results
	}

	return c.JSON(http.StatusOK, resp)
}

// handleMatchNow collects and scores synchronously, returning the ranked
// results in the response. Long AI budgets belong in a match job instead.
func (s *Server) handleMatchNow(c echo.Context) error {
	if s.currentProfile() == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No company profile loaded. POST /api/v1/documents/process first."})
	}

	analyzeAI := c.QueryParam("analyze_ai") != "false"
	budget := 60 * time.Second
	if v, err := strconv.Atoi(c.QueryParam("max_ai_duration_secs")); err == nil && v >= 0 {
		budget = time.Duration(v) * time.Second
	}
	daysBack := 30
	if v, err := strconv.Atoi(c.QueryParam("days_back")); err == nil && v > 0 && v <= 365 {
		daysBack = v
	}
	maxOpportunities := 0
	if v, err := strconv.Atoi(c.QueryParam("max_opportunities")); err == nil && v > 0 {
		maxOpportunities = v
	}
	keywords := splitCSV(c.QueryParam("keywords"))
	if len(keywords) == 0 {
		keywords = searchKeywordsForProfile(s.currentProfile())
	}

	ctx := c.Request().Context()
	opps := s.Collector.Collect(ctx, keywords, daysBack, maxOpportunities)
	if _, err := s.Store.SaveOpportunities(ctx, opps); err != nil {
		s.log.Error("save opportunities failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	results := s.Matcher.MatchAll(ctx, opps, analyzeAI, budget)
	saved, skipped, err := s.Store.SaveMatchResults(ctx, results)
	if err != nil {
		s.log.Error("save match results failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":         "Match complete",
		"collected":       len(opps),
		"matched":         len(results),
		"results_saved":   saved,
		"results_skipped": skipped,
		"results":         results,
	})
}

func (s *Server) handleStartMatchJob(c echo.Context) error {
	if s.currentProfile() == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No company profile loaded. POST /api/v1/documents/process first."})
	}

	analyzeAI := c.QueryParam("analyze_ai") != "false"
	budget := 300 * time.Second
	if v, err := strconv.Atoi(c.QueryParam("max_ai_duration_secs")); err == nil && v >= 0 {
		budget = time.Duration(v) * time.Second
	}
	daysBack := 30
	if v, err := strconv.Atoi(c.QueryParam("days_back")); err == nil && v > 0 && v <= 365 {
		daysBack = v
	}
	maxOpportunities := 0
	if v, err := strconv.Atoi(c.QueryParam("max_opportunities")); err == nil && v > 0 {
		maxOpportunities = v
	}
	keywords := splitCSV(c.QueryParam("keywords"))
	if len(keywords) == 0 {
		keywords = searchKeywordsForProfile(s.currentProfile())
	}

	// Detach from the HTTP lifecycle; the job outlives the request.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Kind:      "match",
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.trackJob(job)

	go func() {
		defer jobCancel()

		opps := s.Collector.Collect(jobCtx, keywords, daysBack, maxOpportunities)
		inserted, err := s.Store.SaveOpportunities(jobCtx, opps)
		if err != nil {
			s.failJob(job, fmt.Errorf("save opportunities: %w", err))
			return
		}

		results := s.Matcher.MatchAll(jobCtx, opps, analyzeAI, budget)
		saved, skipped, err := s.Store.SaveMatchResults(jobCtx, results)
		if err != nil {
			s.failJob(job, fmt.Errorf("save match results: %w", err))
			return
		}

		top := match.TopMatches(results, 10)
		s.jobMu.Lock()
		job.Status = "completed"
		job.EndedAt = time.Now()
		job.Result = map[string]interface{}{
			"collected":       len(opps),
			"inserted":        inserted,
			"matched":         len(results),
			"results_saved":   saved,
			"results_skipped": skipped,
			"should_apply":    len(top),
		}
		s.jobMu.Unlock()
		s.log.Info("match job completed",
			zap.String("job_id", jobID),
			zap.Int("matched", len(results)),
			zap.Int("saved", saved))
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Match job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/jobs/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")

	s.jobMu.Lock()
	job, ok := s.jobs[queried]
	if !ok {
		s.jobMu.Unlock()
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]interface{}{
		"id":         job.ID,
		"kind":       job.Kind,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	s.jobMu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) currentProfile() *models.CompanyProfile {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	return s.profile
}

// trackJob registers a job, evicting the oldest finished entries once
// the tracking table fills up.
func (s *Server) trackJob(job *backgroundJob) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)

	for len(s.jobOrder) > maxTrackedJobs {
		evicted := false
		for i, id := range s.jobOrder {
			if s.jobs[id].Status != "running" {
				delete(s.jobs, id)
				s.jobOrder = append(s.jobOrder[:i], s.jobOrder[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			break
		}
	}
}

func (s *Server) failJob(job *backgroundJob, err error) {
	s.jobMu.Lock()
	job.Status = "failed"
	job.Error = err.Error()
	job.EndedAt = time.Now()
	s.jobMu.Unlock()
	s.log.Error("background job failed", zap.String("job_id", job.ID), zap.Error(err))
}

// searchKeywordsForProfile merges the default search terms with the
// profile's extracted capabilities when one is loaded.
func searchKeywordsForProfile(p *models.CompanyProfile) []string {
	base := classify.SearchKeywords()
	if p == nil {
		return base
	}

	seen := make(map[string]bool, len(base))
	for _, kw := range base {
		seen[strings.ToLower(kw)] = true
	}
	for _, kw := range p.TechnicalKeywords {
		if !seen[strings.ToLower(kw)] {
			base = append(base, kw)
			seen[strings.ToLower(kw)] = true
		}
	}
	return base
}

// splitCSV splits a comma-separated query parameter into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/models"
)

// Remotive queries one keyword per request; cap them so a large
// profile keyword set does not hammer the API.
const remotiveMaxKeywords = 8

// RemotiveSource fetches international remote jobs from the public
// Remotive API and maps them to opportunity records.
type RemotiveSource struct {
	Client  *http.Client
	BaseURL string

	log *zap.Logger
}

func NewRemotiveSource(cfg SourceConfig, log *zap.Logger) *RemotiveSource {
	timeout := 30 * time.Second
	if cfg.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://remotive.com/api/remote-jobs"
	}
	return &RemotiveSource{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		log:     log,
	}
}

func (s *RemotiveSource) Name() string { return "Remotive (Remote Jobs)" }

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID              json.Number `json:"id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	CompanyName     string      `json:"company_name"`
	URL             string      `json:"url"`
	PublicationDate string      `json:"publication_date"`
}

func (s *RemotiveSource) Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	used := keywords
	if len(used) > remotiveMaxKeywords {
		used = used[:remotiveMaxKeywords]
	}

	var opportunities []models.BidOpportunity
	for _, keyword := range used {
		s.log.Info("searching Remotive", zap.String("keyword", keyword))

		jobs, err := s.fetchJobs(ctx, keyword)
		if err != nil {
			s.log.Warn("Remotive request failed",
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}

		for _, job := range jobs {
			published := parseRemotiveDate(job.PublicationDate, end)
			if published.Before(start) {
				continue
			}
			opportunities = append(opportunities, mapRemotiveJob(job, published))
		}
	}

	return classify.FilterRelevant(dedupeByID(opportunities), used), nil
}

func (s *RemotiveSource) fetchJobs(ctx context.Context, keyword string) ([]remotiveJob, error) {
	params := url.Values{}
	params.Set("search", keyword)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, truncateText(string(body), 200))
	}

	var apiResp remotiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return apiResp.Jobs, nil
}

func mapRemotiveJob(job remotiveJob, published time.Time) models.BidOpportunity {
	title := job.Title
	if title == "" {
		title = "Remote Job"
	}
	agency := job.CompanyName
	if agency == "" {
		agency = "Remotive Employer"
	}

	// Job descriptions arrive as HTML; reduce to plain text.
	description := truncateText(htmlToText(job.Description), 500)
	if description == "" {
		description = truncateText(job.Category, 500)
	}

	id := job.ID.String()
	if id == "" {
		id = job.Slug
	}
	if id == "" {
		id = fmt.Sprintf("remotive-%d", published.Unix())
	}

	due := published.AddDate(0, 0, 14)
	return models.BidOpportunity{
		Title:         title,
		Description:   description,
		Agency:        agency,
		OpportunityID: id,
		DueDate:       &due,
		URL:           job.URL,
		Source:        "Remotive",
	}
}

func parseRemotiveDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, format := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(format, raw); err == nil {
			return t
		}
	}
	return fallback
}

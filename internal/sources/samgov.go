package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/models"
)

// SAMGovSource fetches federal opportunities from the SAM.gov
// opportunities v2 search API.
type SAMGovSource struct {
	Client  *http.Client
	BaseURL string
	APIKey  string

	log *zap.Logger
}

func NewSAMGovSource(cfg SourceConfig, log *zap.Logger) *SAMGovSource {
	timeout := 60 * time.Second
	if cfg.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.sam.gov/prod/opportunities/v2/search"
	}
	return &SAMGovSource{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		APIKey:  cfg.APIKey,
		log:     log,
	}
}

func (s *SAMGovSource) Name() string { return "SAM.gov" }

// samGovResponse represents the opportunities v2 search response.
type samGovResponse struct {
	TotalRecords      int            `json:"totalRecords"`
	OpportunitiesData []samGovRecord `json:"opportunitiesData"`
}

type samGovRecord struct {
	NoticeID         string `json:"noticeId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	OrganizationType string `json:"organizationType"`
	ResponseDeadLine string `json:"responseDeadLine"`
	NaicsCode        string `json:"naicsCode"`
	AwardAmount      string `json:"awardAmount"`
	UILink           string `json:"uiLink"`
}

var samGovDateFormats = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

// Search queries the API once per keyword and merges the pages,
// deduplicating by notice id. Per-keyword request failures are logged
// and skipped so one bad query never empties the whole source.
func (s *SAMGovSource) Search(ctx context.Context, keywords []string, daysBack int) ([]models.BidOpportunity, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -daysBack)

	var opportunities []models.BidOpportunity
	for _, keyword := range keywords {
		s.log.Info("searching SAM.gov", zap.String("keyword", keyword))

		page, err := s.fetchPage(ctx, keyword, start, end)
		if err != nil {
			s.log.Warn("SAM.gov request failed",
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}
		opportunities = append(opportunities, page...)
	}

	unique := dedupeByID(opportunities)
	s.log.Info("SAM.gov search complete", zap.Int("opportunities", len(unique)))
	return unique, nil
}

func (s *SAMGovSource) fetchPage(ctx context.Context, keyword string, start, end time.Time) ([]models.BidOpportunity, error) {
	params := url.Values{}
	params.Set("limit", "100")
	params.Set("offset", "0")
	params.Set("postedFrom", start.Format("01/02/2006"))
	params.Set("postedTo", end.Format("01/02/2006"))
	params.Set("ptype", "o,k,r")
	params.Set("q", keyword)
	params.Set("sort", "-modifiedOn")
	if s.APIKey != "" {
		params.Set("api_key", s.APIKey)
	}

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

	var apiResp samGovResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var opportunities []models.BidOpportunity
	for _, rec := range apiResp.OpportunitiesData {
		dueDate := parseSAMGovDate(rec.ResponseDeadLine)
		if dueDate == nil {
			// Records without a usable deadline are not actionable.
			continue
		}

		opp := models.BidOpportunity{
			Title:         rec.Title,
			Description:   rec.Description,
			Agency:        rec.OrganizationType,
			OpportunityID: rec.NoticeID,
			DueDate:       dueDate,
			URL:           rec.UILink,
			Source:        "SAM.gov",
		}
		if opp.Title == "" || opp.OpportunityID == "" {
			continue
		}
		if opp.URL == "" {
			opp.URL = "https://sam.gov/opp/" + rec.NoticeID
		}
		if rec.NaicsCode != "" {
			opp.NaicsCodes = []string{rec.NaicsCode}
		}
		if rec.AwardAmount != "" {
			if v, err := strconv.ParseFloat(rec.AwardAmount, 64); err == nil {
				opp.EstimatedValue = &v
			}
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities, nil
}

func parseSAMGovDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, format := range samGovDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return &t
		}
	}
	return nil
}

func dedupeByID(opps []models.BidOpportunity) []models.BidOpportunity {
	seen := make(map[string]struct{}, len(opps))
	unique := make([]models.BidOpportunity, 0, len(opps))
	for _, opp := range opps {
		if _, dup := seen[opp.OpportunityID]; dup {
			continue
		}
		seen[opp.OpportunityID] = struct{}{}
		unique = append(unique, opp)
	}
	return unique
}

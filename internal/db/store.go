package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/classify"
	"github.com/keith/bid-finder/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// StoredOpportunity is a persisted opportunity plus the classification
// tags computed at save time.
type StoredOpportunity struct {
	ID string `json:"id"`
	models.BidOpportunity
	IsGovernment bool      `json:"is_government"`
	IsJobPosting bool      `json:"is_job_posting"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListParams struct {
	Query          string
	QueryEmbedding []float32
	Source         string
	IsGovernment   *bool
	IsJobPosting   *bool
	Location       string
	DueWithinDays  int
	Limit          int
	Offset         int
	SortBy         string // "due_date", "newest", or "relevance" (default)
}

type ListResult struct {
	Opportunities []StoredOpportunity `json:"opportunities"`
	Total         int                 `json:"total"`
	Limit         int                 `json:"limit"`
	Offset        int                 `json:"offset"`
}

// selectCols is the column list shared by all opportunity queries.
const selectCols = `id, opportunity_id, source, title, description, agency,
	due_date, estimated_value, naics_codes, keywords, url,
	is_government, is_job_posting, location, created_at`

func scanOpportunity(scan func(dest ...interface{}) error) (StoredOpportunity, error) {
	var o StoredOpportunity
	var description, agency, url, location *string

	err := scan(
		&o.ID, &o.OpportunityID, &o.Source, &o.Title, &description, &agency,
		&o.DueDate, &o.EstimatedValue, &o.NaicsCodes, &o.Keywords, &url,
		&o.IsGovernment, &o.IsJobPosting, &location, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	if description != nil {
		o.Description = *description
	}
	if agency != nil {
		o.Agency = *agency
	}
	if url != nil {
		o.URL = *url
	}
	if location != nil {
		o.Location = *location
	}

	return o, nil
}

// SaveOpportunities inserts new opportunities, tagging each with its
// classification. An opportunity already present for the same source
// keeps its stored row untouched, so the first-seen record wins.
// Returns the number of newly inserted rows.
func (s *Store) SaveOpportunities(ctx context.Context, opps []models.BidOpportunity) (int, error) {
	inserted := 0
	for _, opp := range opps {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO opportunities (
				opportunity_id, source, title, description, agency,
				due_date, estimated_value, naics_codes, keywords, url,
				is_government, is_job_posting, location
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (source, opportunity_id) DO NOTHING
		`,
			opp.OpportunityID, opp.Source, opp.Title, opp.Description, opp.Agency,
			opp.DueDate, opp.EstimatedValue, opp.NaicsCodes, opp.Keywords, opp.URL,
			classify.IsGovernmentBid(opp), classify.IsJobPosting(opp), classify.InferLocation(opp),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert opportunity %s: %w", opp.OpportunityID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// EmbedMissing generates embeddings for stored opportunities that have
// none yet, up to limit rows. A failed embedding aborts the pass; rows
// already embedded are left alone.
func (s *Store) EmbedMissing(ctx context.Context, embedder ai.Embedder, limit int) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, COALESCE(description, '')
		FROM opportunities
		WHERE embedding IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select unembedded: %w", err)
	}

	type pending struct {
		id   string
		text string
	}
	var batch []pending
	for rows.Next() {
		var p pending
		var title, description string
		if err := rows.Scan(&p.id, &title, &description); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan unembedded: %w", err)
		}
		p.text = strings.TrimSpace(title + " " + description)
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate unembedded: %w", err)
	}

	done := 0
	for _, p := range batch {
		if p.text == "" {
			continue
		}
		vec, err := embedder.GenerateEmbedding(ctx, p.text)
		if err != nil {
			return done, fmt.Errorf("embed opportunity %s: %w", p.id, err)
		}
		if _, err := s.pool.Exec(ctx, `UPDATE opportunities SET embedding = $1 WHERE id = $2`, pgvector.NewVector(vec), p.id); err != nil {
			return done, fmt.Errorf("store embedding %s: %w", p.id, err)
		}
		done++
	}
	return done, nil
}

func (s *Store) ListOpportunities(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (search_vector @@ plainto_tsquery('english', $%d) OR title ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Source != "" {
		where += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, params.Source)
		argIdx++
	}
	if params.IsGovernment != nil {
		where += fmt.Sprintf(" AND is_government = $%d", argIdx)
		args = append(args, *params.IsGovernment)
		argIdx++
	}
	if params.IsJobPosting != nil {
		where += fmt.Sprintf(" AND is_job_posting = $%d", argIdx)
		args = append(args, *params.IsJobPosting)
		argIdx++
	}
	if params.Location != "" {
		where += fmt.Sprintf(" AND location ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Location)
		argIdx++
	}
	if params.DueWithinDays > 0 {
		where += fmt.Sprintf(" AND due_date IS NOT NULL AND due_date >= NOW() AND due_date <= NOW() + ($%d * INTERVAL '1 day')", argIdx)
		args = append(args, params.DueWithinDays)
		argIdx++
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM opportunities " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM opportunities %s", selectCols, where)

	switch params.SortBy {
	case "due_date":
		selectSQL += " ORDER BY due_date ASC NULLS LAST, created_at DESC"
	case "newest":
		selectSQL += " ORDER BY created_at DESC"
	default: // "relevance"
		if len(params.QueryEmbedding) > 0 {
			vectorArg := argIdx
			args = append(args, pgvector.NewVector(params.QueryEmbedding))
			argIdx++

			selectSQL += fmt.Sprintf(`
				ORDER BY
					CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
					COALESCE(1 - (embedding <=> $%d), -1) DESC,
					created_at DESC
			`, vectorArg)
		} else if params.Query != "" {
			queryArg := argIdx
			args = append(args, params.Query)
			argIdx++
			selectSQL += fmt.Sprintf(" ORDER BY ts_rank(search_vector, plainto_tsquery('english', $%d::text)) DESC, created_at DESC", queryArg)
		} else {
			selectSQL += " ORDER BY created_at DESC"
		}
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var opps []StoredOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if opps == nil {
		opps = []StoredOpportunity{}
	}

	return &ListResult{
		Opportunities: opps,
		Total:         total,
		Limit:         params.Limit,
		Offset:        params.Offset,
	}, nil
}

func (s *Store) GetOpportunity(ctx context.Context, id string) (*StoredOpportunity, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM opportunities
		WHERE id = $1
	`, selectCols)
	row := s.pool.QueryRow(ctx, sql, id)

	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	return &o, nil
}

func (s *Store) GetOpportunityBySourceID(ctx context.Context, source, opportunityID string) (*StoredOpportunity, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM opportunities
		WHERE source = $1 AND opportunity_id = $2
	`, selectCols)
	row := s.pool.QueryRow(ctx, sql, source, opportunityID)

	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	return &o, nil
}

func (s *Store) GetSources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT source FROM opportunities ORDER BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err == nil {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&total)
	stats["total"] = total

	var sources int
	s.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT source) FROM opportunities").Scan(&sources)
	stats["sources"] = sources

	var government int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities WHERE is_government = true").Scan(&government)
	stats["government"] = government

	var jobs int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities WHERE is_job_posting = true").Scan(&jobs)
	stats["job_postings"] = jobs

	var upcoming int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities WHERE due_date IS NOT NULL AND due_date > NOW()").Scan(&upcoming)
	stats["with_deadline"] = upcoming

	var matched int
	s.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT opportunity_pk) FROM match_results").Scan(&matched)
	stats["matched"] = matched

	return stats, nil
}

// MatchRow is a persisted match result joined with its opportunity.
type MatchRow struct {
	ID                  string            `json:"id"`
	Opportunity         StoredOpportunity `json:"opportunity"`
	MatchScore          float64           `json:"match_score"`
	Confidence          string            `json:"confidence"`
	MatchingKeywords    []string          `json:"matching_keywords"`
	MissingRequirements []string          `json:"missing_requirements"`
	Recommendations     []string          `json:"recommendations"`
	RequiredDocuments   []string          `json:"required_documents"`
	RequiredAttachments []string          `json:"required_attachments"`
	ShouldApply         bool              `json:"should_apply"`
	MatchedAt           time.Time         `json:"matched_at"`
}

// SaveMatchResults persists a matching run. Results whose opportunity
// has not been stored yet are skipped and counted in the second return
// value.
func (s *Store) SaveMatchResults(ctx context.Context, results []models.MatchResult) (saved, skipped int, err error) {
	for _, r := range results {
		var pk string
		err := s.pool.QueryRow(ctx,
			`SELECT id FROM opportunities WHERE source = $1 AND opportunity_id = $2`,
			r.Opportunity.Source, r.Opportunity.OpportunityID,
		).Scan(&pk)
		if err != nil {
			skipped++
			continue
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO match_results (
				opportunity_pk, match_score, confidence, matching_keywords,
				missing_requirements, recommendations, required_documents,
				required_attachments, should_apply
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			pk, r.MatchScore, r.Confidence, r.MatchingKeywords,
			r.MissingRequirements, r.Recommendations, r.RequiredDocuments,
			r.RequiredAttachments, r.ShouldApply,
		)
		if err != nil {
			return saved, skipped, fmt.Errorf("insert match for %s: %w", r.Opportunity.OpportunityID, err)
		}
		saved++
	}
	return saved, skipped, nil
}

// ListMatches returns the most recent match per opportunity, ordered by
// score descending.
func (s *Store) ListMatches(ctx context.Context, limit int, shouldApplyOnly bool) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 50
	}

	where := ""
	if shouldApplyOnly {
		where = "WHERE m.should_apply = true"
	}

	sql := fmt.Sprintf(`
		SELECT DISTINCT ON (m.opportunity_pk)
			m.id, m.match_score, m.confidence, m.matching_keywords,
			m.missing_requirements, m.recommendations, m.required_documents,
			m.required_attachments, m.should_apply, m.matched_at,
			%s
		FROM match_results m
		JOIN opportunities o ON o.id = m.opportunity_pk
		%s
		ORDER BY m.opportunity_pk, m.matched_at DESC
	`, prefixCols(selectCols, "o."), where)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []MatchRow
	for rows.Next() {
		var m MatchRow
		var description, agency, url, location *string
		err := rows.Scan(
			&m.ID, &m.MatchScore, &m.Confidence, &m.MatchingKeywords,
			&m.MissingRequirements, &m.Recommendations, &m.RequiredDocuments,
			&m.RequiredAttachments, &m.ShouldApply, &m.MatchedAt,
			&m.Opportunity.ID, &m.Opportunity.OpportunityID, &m.Opportunity.Source,
			&m.Opportunity.Title, &description, &agency,
			&m.Opportunity.DueDate, &m.Opportunity.EstimatedValue,
			&m.Opportunity.NaicsCodes, &m.Opportunity.Keywords, &url,
			&m.Opportunity.IsGovernment, &m.Opportunity.IsJobPosting, &location,
			&m.Opportunity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if description != nil {
			m.Opportunity.Description = *description
		}
		if agency != nil {
			m.Opportunity.Agency = *agency
		}
		if url != nil {
			m.Opportunity.URL = *url
		}
		if location != nil {
			m.Opportunity.Location = *location
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	// DISTINCT ON forces opportunity ordering, so rank by score here.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []MatchRow{}
	}
	return matches, nil
}

func prefixCols(cols, prefix string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

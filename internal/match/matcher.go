package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/models"
)

// Score composition and decision thresholds.
const (
	similarityWeight = 0.3
	keywordWeight    = 0.4
	assessmentWeight = 0.3

	highConfidenceThreshold   = 0.8
	mediumConfidenceThreshold = 0.6

	applyScoreThreshold          = 0.7
	applyWithHighAssessmentFloor = 0.5
)

var assessmentScores = map[string]float64{
	AssessmentHigh:   0.9,
	AssessmentMedium: 0.6,
	AssessmentLow:    0.3,
}

// Matcher scores bid opportunities against a fitted company profile.
// SetProfile may run concurrently with matching; an in-flight batch
// keeps scoring against the profile it started with.
type Matcher struct {
	backend ai.Analyzer
	log     *zap.Logger

	mu         sync.RWMutex
	profile    *models.CompanyProfile
	vectorizer *Vectorizer
}

// New returns a matcher with no profile set.
func New(backend ai.Analyzer, log *zap.Logger) *Matcher {
	return &Matcher{
		backend:    backend,
		log:        log,
		vectorizer: NewVectorizer(),
	}
}

// SetProfile installs the company profile and fits the text vector
// space on its aggregate content.
func (m *Matcher) SetProfile(profile *models.CompanyProfile) {
	vectorizer := NewVectorizer()
	if profile != nil {
		vectorizer.Fit(profile.AllContent)
	}

	m.mu.Lock()
	m.profile = profile
	m.vectorizer = vectorizer
	m.mu.Unlock()

	if profile != nil && !vectorizer.Fitted() {
		m.log.Warn("company profile has no usable text; similarity scores will be 0",
			zap.String("company", profile.CompanyName))
	}
}

// snapshot returns the profile and vectorizer pair installed by the
// most recent SetProfile.
func (m *Matcher) snapshot() (*models.CompanyProfile, *Vectorizer) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile, m.vectorizer
}

// MatchAll scores every opportunity and returns the results sorted by
// descending match score, ties keeping input order. When analyzeAI is
// set, model analysis runs per opportunity until the time budget is
// exhausted; after that the remainder of the batch uses the heuristic
// path. A nil profile yields an empty result set.
func (m *Matcher) MatchAll(ctx context.Context, opps []models.BidOpportunity, analyzeAI bool, budget time.Duration) []models.MatchResult {
	profile, vectorizer := m.snapshot()
	if profile == nil {
		m.log.Error("no company profile set; skipping match run")
		return []models.MatchResult{}
	}

	start := time.Now()
	aiEnabled := analyzeAI && m.backend != nil
	aiCalls := 0

	results := make([]models.MatchResult, 0, len(opps))
	for _, opp := range opps {
		remaining := budget - time.Since(start)
		useAI := aiEnabled && remaining > 0
		if aiEnabled && !useAI {
			m.log.Info("analysis time budget exhausted; using heuristic assessment for remaining opportunities",
				zap.Duration("budget", budget),
				zap.Int("scored", len(results)))
			aiEnabled = false
		}
		if useAI {
			aiCalls++
		}
		results = append(results, m.score(ctx, profile, vectorizer, opp, useAI, remaining))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})

	m.log.Info("match run complete",
		zap.Int("opportunities", len(opps)),
		zap.Int("ai_analyses", aiCalls),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

// MatchOne scores a single opportunity. The timeout bounds the model
// call when analyzeAI is set; non-positive timeouts force the heuristic
// path.
func (m *Matcher) MatchOne(ctx context.Context, opp models.BidOpportunity, analyzeAI bool, timeout time.Duration) (models.MatchResult, bool) {
	profile, vectorizer := m.snapshot()
	if profile == nil {
		m.log.Error("no company profile set; skipping match")
		return models.MatchResult{}, false
	}
	useAI := analyzeAI && m.backend != nil && timeout > 0
	return m.score(ctx, profile, vectorizer, opp, useAI, timeout), true
}

// TopMatches filters a sorted result set down to the apply-worthy
// entries, capped at limit.
func TopMatches(results []models.MatchResult, limit int) []models.MatchResult {
	top := make([]models.MatchResult, 0, limit)
	for _, r := range results {
		if !r.ShouldApply {
			continue
		}
		top = append(top, r)
		if len(top) == limit {
			break
		}
	}
	return top
}

// aggregate combines the three scoring signals into the final score,
// confidence tier, and apply decision.
func aggregate(similarity, keywordScore float64, assessment string) (score float64, confidence string, shouldApply bool) {
	assessmentScore, ok := assessmentScores[assessment]
	if !ok {
		assessmentScore = assessmentScores[AssessmentMedium]
	}

	score = similarityWeight*similarity + keywordWeight*keywordScore + assessmentWeight*assessmentScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	confidence = "Low"
	switch {
	case score >= highConfidenceThreshold:
		confidence = "High"
	case score >= mediumConfidenceThreshold:
		confidence = "Medium"
	}

	shouldApply = score >= applyScoreThreshold ||
		(score >= applyWithHighAssessmentFloor && assessment == AssessmentHigh)
	return score, confidence, shouldApply
}

func (m *Matcher) score(ctx context.Context, profile *models.CompanyProfile, vectorizer *Vectorizer, opp models.BidOpportunity, useAI bool, remaining time.Duration) models.MatchResult {
	text := opp.Text()
	similarity := vectorizer.Similarity(text)
	keywordScore, matched := MatchKeywords(profile.TechnicalKeywords, text)

	var analysis Analysis
	if useAI {
		var err error
		analysis, err = analyzeRequirements(ctx, m.backend, opp, profile.AllContent, remaining)
		if err != nil {
			m.log.Warn("requirement analysis failed; using fallback assessment",
				zap.String("opportunity_id", opp.OpportunityID),
				zap.Error(err))
			analysis = fallbackAnalysis()
		}
	} else {
		analysis = heuristicAnalysis(similarity, keywordScore)
	}

	score, confidence, shouldApply := aggregate(similarity, keywordScore, analysis.Assessment)

	return models.MatchResult{
		Opportunity:         opp,
		MatchScore:          score,
		Confidence:          confidence,
		MatchingKeywords:    matched,
		MissingRequirements: analysis.MissingRequirements,
		Recommendations:     analysis.Recommendations,
		RequiredDocuments:   analysis.RequiredDocuments,
		RequiredAttachments: analysis.RequiredAttachments,
		ShouldApply:         shouldApply,
	}
}

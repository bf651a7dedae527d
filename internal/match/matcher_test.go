package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/keith/bid-finder/internal/models"
)

type scriptedBackend struct {
	mu       sync.Mutex
	calls    int
	delay    time.Duration
	response string
	err      error
}

func (s *scriptedBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *scriptedBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testProfile() *models.CompanyProfile {
	return &models.CompanyProfile{
		CompanyName: "Acme Cyber Ltd",
		AllContent: "We provide network security monitoring, penetration testing, cloud " +
			"infrastructure management and software development services for government " +
			"and enterprise clients across the region",
		TechnicalKeywords: []string{"network", "security", "cloud", "software"},
		DocumentCount:     3,
	}
}

func testOpportunity(id, title, desc string) models.BidOpportunity {
	return models.BidOpportunity{
		Title:         title,
		Description:   desc,
		Agency:        "Ministry of ICT",
		OpportunityID: id,
		Source:        "Test",
	}
}

func TestAggregateDecisionBoundaries(t *testing.T) {
	tests := []struct {
		name            string
		similarity      float64
		keyword         float64
		assessment      string
		wantScore       float64
		wantConfidence  string
		wantShouldApply bool
	}{
		{"perfect match", 1.0, 1.0, AssessmentHigh, 0.97, "High", true},
		{"nothing matches", 0.0, 0.0, AssessmentLow, 0.09, "Low", false},
		{"exactly at apply threshold", 1.0, 0.55, AssessmentMedium, 0.70, "Medium", true},
		{"midrange with high assessment", 0.4, 0.4, AssessmentHigh, 0.55, "Low", true},
		{"midrange with medium assessment", 0.3, 0.7, AssessmentMedium, 0.55, "Low", false},
		{"unknown assessment treated as medium", 0.0, 0.0, "weird", 0.18, "Low", false},
		{"confidence high boundary", 1.0, 0.8, AssessmentHigh, 0.89, "High", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, confidence, shouldApply := aggregate(tt.similarity, tt.keyword, tt.assessment)
			if math.Abs(score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if confidence != tt.wantConfidence {
				t.Errorf("confidence = %q, want %q", confidence, tt.wantConfidence)
			}
			if shouldApply != tt.wantShouldApply {
				t.Errorf("shouldApply = %v, want %v", shouldApply, tt.wantShouldApply)
			}
		})
	}
}

func TestAggregateScoreBounds(t *testing.T) {
	for _, sim := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		for _, kw := range []float64{0.0, 0.5, 1.0} {
			for _, assessment := range []string{AssessmentHigh, AssessmentMedium, AssessmentLow, ""} {
				score, _, _ := aggregate(sim, kw, assessment)
				if score < 0.0 || score > 1.0 {
					t.Errorf("aggregate(%v, %v, %q) score = %v, out of [0,1]", sim, kw, assessment, score)
				}
			}
		}
	}
}

func TestMatchAllWithoutProfile(t *testing.T) {
	m := New(&scriptedBackend{}, zap.NewNop())
	got := m.MatchAll(context.Background(), []models.BidOpportunity{
		testOpportunity("A", "Network Engineer", "routers"),
		testOpportunity("B", "Cloud Architect", "aws"),
	}, false, 0)
	if len(got) != 0 {
		t.Errorf("MatchAll without profile returned %d results, want 0", len(got))
	}
}

func TestMatchAllEmptyInput(t *testing.T) {
	m := New(nil, zap.NewNop())
	m.SetProfile(testProfile())
	got := m.MatchAll(context.Background(), nil, false, 0)
	if len(got) != 0 {
		t.Errorf("MatchAll(nil) returned %d results, want 0", len(got))
	}
}

func TestMatchAllDeterministic(t *testing.T) {
	m := New(nil, zap.NewNop())
	m.SetProfile(testProfile())
	opps := []models.BidOpportunity{
		testOpportunity("A", "Network Security Monitoring", "24/7 SOC and penetration testing services"),
		testOpportunity("B", "Office Cleaning", "janitorial services for headquarters"),
		testOpportunity("C", "Cloud Infrastructure Management", "software development and cloud services"),
	}

	first := m.MatchAll(context.Background(), opps, false, 0)
	second := m.MatchAll(context.Background(), opps, false, 0)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated heuristic MatchAll runs differ")
	}
}

func TestMatchAllSortedDescendingStable(t *testing.T) {
	m := New(nil, zap.NewNop())
	m.SetProfile(testProfile())
	opps := []models.BidOpportunity{
		testOpportunity("low", "Catering Services", "lunch for staff"),
		testOpportunity("tie-1", "Network Security", "network security services"),
		testOpportunity("tie-2", "Network Security", "network security services"),
		testOpportunity("high", "Network Security Cloud Software", "network security monitoring cloud infrastructure software development services"),
	}

	got := m.MatchAll(context.Background(), opps, false, 0)
	if len(got) != len(opps) {
		t.Fatalf("got %d results, want %d", len(got), len(opps))
	}
	for i := 1; i < len(got); i++ {
		if got[i].MatchScore > got[i-1].MatchScore {
			t.Fatalf("results not sorted descending at %d: %v > %v", i, got[i].MatchScore, got[i-1].MatchScore)
		}
	}
	// Equal-score records keep their input order.
	tie1, tie2 := -1, -1
	for i, r := range got {
		switch r.Opportunity.OpportunityID {
		case "tie-1":
			tie1 = i
		case "tie-2":
			tie2 = i
		}
	}
	if tie1 == -1 || tie2 == -1 || tie1 > tie2 {
		t.Errorf("tied results reordered: tie-1 at %d, tie-2 at %d", tie1, tie2)
	}
	if got[len(got)-1].Opportunity.OpportunityID != "low" {
		t.Errorf("lowest-relevance record not last: %q", got[len(got)-1].Opportunity.OpportunityID)
	}
}

func TestSetProfileConcurrentWithMatchAll(t *testing.T) {
	m := New(nil, zap.NewNop())
	m.SetProfile(testProfile())

	opps := make([]models.BidOpportunity, 50)
	for i := range opps {
		opps[i] = testOpportunity(fmt.Sprintf("opp-%03d", i), "Network Security", "network security monitoring services")
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				m.SetProfile(testProfile())
			}
		}
	}()

	for i := 0; i < 20; i++ {
		got := m.MatchAll(context.Background(), opps, false, 0)
		if len(got) != len(opps) {
			t.Fatalf("got %d results, want %d", len(got), len(opps))
		}
	}
	close(done)
	wg.Wait()
}

func TestMatchAllBudgetMonotonic(t *testing.T) {
	backend := &scriptedBackend{
		delay:    30 * time.Millisecond,
		response: "ASSESSMENT: Medium",
	}
	m := New(backend, zap.NewNop())
	m.SetProfile(testProfile())

	opps := make([]models.BidOpportunity, 5)
	for i := range opps {
		opps[i] = testOpportunity(string(rune('A'+i)), "Network Security", "network security services")
	}

	got := m.MatchAll(context.Background(), opps, true, 10*time.Millisecond)
	if len(got) != len(opps) {
		t.Fatalf("got %d results, want %d", len(got), len(opps))
	}
	if backend.callCount() != 1 {
		t.Errorf("backend calls = %d, want 1 (budget allows only the first)", backend.callCount())
	}

	heuristic := 0
	for _, r := range got {
		for _, rec := range r.Recommendations {
			if strings.Contains(rec, "Heuristic assessment") {
				heuristic++
			}
		}
	}
	if heuristic != len(opps)-1 {
		t.Errorf("heuristic results = %d, want %d", heuristic, len(opps)-1)
	}
}

func TestMatchAllZeroBudgetUsesHeuristic(t *testing.T) {
	backend := &scriptedBackend{response: "ASSESSMENT: High"}
	m := New(backend, zap.NewNop())
	m.SetProfile(testProfile())

	opps := []models.BidOpportunity{
		testOpportunity("A", "Network Security", "services"),
		testOpportunity("B", "Cloud Migration", "services"),
	}
	m.MatchAll(context.Background(), opps, true, 0)
	if backend.callCount() != 0 {
		t.Errorf("backend calls = %d, want 0 with zero budget", backend.callCount())
	}
}

func TestMatchAllBackendFailureDegrades(t *testing.T) {
	backend := &scriptedBackend{err: errors.New("connection refused")}
	m := New(backend, zap.NewNop())
	m.SetProfile(testProfile())

	opps := []models.BidOpportunity{
		testOpportunity("A", "Network Security", "network security services"),
		testOpportunity("B", "Cloud Migration", "cloud infrastructure services"),
	}
	got := m.MatchAll(context.Background(), opps, true, time.Minute)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (failures degrade, never drop)", len(got))
	}
	for _, r := range got {
		if len(r.Recommendations) != 1 || !strings.Contains(r.Recommendations[0], "manual review") {
			t.Errorf("result %q recommendations = %v, want fallback note", r.Opportunity.OpportunityID, r.Recommendations)
		}
		if r.MatchScore < 0 || r.MatchScore > 1 {
			t.Errorf("result %q score %v out of bounds", r.Opportunity.OpportunityID, r.MatchScore)
		}
	}
}

func TestMatchAllParsesBackendResponse(t *testing.T) {
	backend := &scriptedBackend{response: `MISSING_REQUIREMENTS: CMMC Level 2
RECOMMENDATIONS: Obtain certification before submission
REQUIRED_DOCUMENTS: Capability statement
REQUIRED_ATTACHMENTS: Pricing sheet
ASSESSMENT: High`}
	m := New(backend, zap.NewNop())
	m.SetProfile(testProfile())

	got := m.MatchAll(context.Background(), []models.BidOpportunity{
		testOpportunity("A", "Network Security Monitoring", "network security cloud software services"),
	}, true, time.Minute)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	r := got[0]
	if !reflect.DeepEqual(r.MissingRequirements, []string{"CMMC Level 2"}) {
		t.Errorf("MissingRequirements = %v", r.MissingRequirements)
	}
	if !reflect.DeepEqual(r.RequiredDocuments, []string{"Capability statement"}) {
		t.Errorf("RequiredDocuments = %v", r.RequiredDocuments)
	}
	if !r.ShouldApply {
		t.Error("strong match with High assessment should apply")
	}
}

func TestMatchOne(t *testing.T) {
	m := New(nil, zap.NewNop())
	m.SetProfile(testProfile())

	opp := testOpportunity("A", "Network Security Monitoring", "network security cloud software services")
	got, ok := m.MatchOne(context.Background(), opp, false, 0)
	if !ok {
		t.Fatal("MatchOne returned not-ok with profile set")
	}
	if got.Opportunity.OpportunityID != "A" {
		t.Errorf("OpportunityID = %q, want A", got.Opportunity.OpportunityID)
	}
	if got.MatchScore <= 0 {
		t.Errorf("MatchScore = %v, want > 0 for an overlapping record", got.MatchScore)
	}

	if _, ok := New(nil, zap.NewNop()).MatchOne(context.Background(), opp, false, 0); ok {
		t.Error("MatchOne without profile returned ok")
	}
}

func TestTopMatches(t *testing.T) {
	results := []models.MatchResult{
		{Opportunity: models.BidOpportunity{OpportunityID: "a"}, MatchScore: 0.9, ShouldApply: true},
		{Opportunity: models.BidOpportunity{OpportunityID: "b"}, MatchScore: 0.8, ShouldApply: false},
		{Opportunity: models.BidOpportunity{OpportunityID: "c"}, MatchScore: 0.7, ShouldApply: true},
		{Opportunity: models.BidOpportunity{OpportunityID: "d"}, MatchScore: 0.6, ShouldApply: true},
	}
	got := TopMatches(results, 2)
	if len(got) != 2 || got[0].Opportunity.OpportunityID != "a" || got[1].Opportunity.OpportunityID != "c" {
		t.Errorf("TopMatches = %v, want [a c]", got)
	}
}

package match

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/keith/bid-finder/internal/models"
)

func TestParseAnalysisFullResponse(t *testing.T) {
	resp := `MISSING_REQUIREMENTS: ISO 27001 certification, 5 years federal experience
RECOMMENDATIONS:
- Partner with a certified firm
- Highlight recent cloud migrations
REQUIRED_DOCUMENTS: Capability statement, Past performance references
REQUIRED_ATTACHMENTS: Form SF-33
ASSESSMENT: High`

	got := parseAnalysis(resp)

	if got.Assessment != AssessmentHigh {
		t.Errorf("Assessment = %q, want High", got.Assessment)
	}
	wantMissing := []string{"ISO 27001 certification", "5 years federal experience"}
	if !reflect.DeepEqual(got.MissingRequirements, wantMissing) {
		t.Errorf("MissingRequirements = %v, want %v", got.MissingRequirements, wantMissing)
	}
	wantRecs := []string{"Partner with a certified firm", "Highlight recent cloud migrations"}
	if !reflect.DeepEqual(got.Recommendations, wantRecs) {
		t.Errorf("Recommendations = %v, want %v", got.Recommendations, wantRecs)
	}
	wantDocs := []string{"Capability statement", "Past performance references"}
	if !reflect.DeepEqual(got.RequiredDocuments, wantDocs) {
		t.Errorf("RequiredDocuments = %v, want %v", got.RequiredDocuments, wantDocs)
	}
	if !reflect.DeepEqual(got.RequiredAttachments, []string{"Form SF-33"}) {
		t.Errorf("RequiredAttachments = %v, want [Form SF-33]", got.RequiredAttachments)
	}
}

func TestParseAnalysisMissingSections(t *testing.T) {
	got := parseAnalysis("ASSESSMENT: Low")
	if got.Assessment != AssessmentLow {
		t.Errorf("Assessment = %q, want Low", got.Assessment)
	}
	if len(got.MissingRequirements) != 0 || len(got.Recommendations) != 0 ||
		len(got.RequiredDocuments) != 0 || len(got.RequiredAttachments) != 0 {
		t.Errorf("expected empty sections, got %+v", got)
	}
}

func TestParseAnalysisAssessmentDefaults(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want string
	}{
		{"no assessment section", "RECOMMENDATIONS: review carefully", AssessmentMedium},
		{"garbage assessment", "ASSESSMENT: banana", AssessmentMedium},
		{"lowercase high", "ASSESSMENT: high likelihood", AssessmentHigh},
		{"medium spelled out", "ASSESSMENT: Medium fit overall", AssessmentMedium},
		{"empty response", "", AssessmentMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseAnalysis(tt.resp); got.Assessment != tt.want {
				t.Errorf("Assessment = %q, want %q", got.Assessment, tt.want)
			}
		})
	}
}

func TestSplitAnalysisItems(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"comma separated", "one, two, three", []string{"one", "two", "three"}},
		{"bulleted lines", "- first\n• second\n* third", []string{"first", "second", "third"}},
		{"empties dropped", "a,, ,b", []string{"a", "b"}},
		{"empty body", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitAnalysisItems(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitAnalysisItems(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestHeuristicAnalysisThresholds(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		keyword    float64
		want       string
	}{
		{"high at boundary", 0.7, 0.7, AssessmentHigh},
		{"high above", 0.9, 0.8, AssessmentHigh},
		{"medium at boundary", 0.5, 0.5, AssessmentMedium},
		{"medium mixed", 0.3, 0.8, AssessmentMedium},
		{"low", 0.2, 0.2, AssessmentLow},
		{"zero", 0.0, 0.0, AssessmentLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := heuristicAnalysis(tt.similarity, tt.keyword)
			if got.Assessment != tt.want {
				t.Errorf("Assessment = %q, want %q", got.Assessment, tt.want)
			}
			if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "Heuristic assessment") {
				t.Errorf("Recommendations = %v, want single heuristic note", got.Recommendations)
			}
			if len(got.MissingRequirements) != 0 || len(got.RequiredDocuments) != 0 {
				t.Errorf("expected empty requirement lists, got %+v", got)
			}
		})
	}
}

func TestFallbackAnalysis(t *testing.T) {
	got := fallbackAnalysis()
	if got.Assessment != AssessmentMedium {
		t.Errorf("Assessment = %q, want Medium", got.Assessment)
	}
	if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "manual review") {
		t.Errorf("Recommendations = %v, want single manual-review note", got.Recommendations)
	}
}

func TestBuildAnalysisPromptCapsProfile(t *testing.T) {
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	opp := models.BidOpportunity{
		Title:       "Security Operations Center Support",
		Agency:      "Ministry of ICT",
		Description: "24/7 SOC monitoring",
		DueDate:     &due,
		NaicsCodes:  []string{"541512", "541519"},
	}
	long := strings.Repeat("x", profileExcerptLimit+500)
	prompt := buildAnalysisPrompt(opp, long)

	if strings.Contains(prompt, strings.Repeat("x", profileExcerptLimit+1)) {
		t.Error("profile excerpt exceeds cap")
	}
	for _, want := range []string{"Security Operations Center Support", "Ministry of ICT", "2026-10-01", "541512, 541519"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildAnalysisPromptOptionalFields(t *testing.T) {
	prompt := buildAnalysisPrompt(models.BidOpportunity{Title: "T", Description: "D"}, "profile")
	if !strings.Contains(prompt, "Due Date: Not specified") {
		t.Error("prompt missing due-date placeholder")
	}
	if !strings.Contains(prompt, "NAICS Codes: Not specified") {
		t.Error("prompt missing codes placeholder")
	}
}

package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/keith/bid-finder/internal/ai"
	"github.com/keith/bid-finder/internal/models"
)

// Assessment levels returned by requirement analysis.
const (
	AssessmentHigh   = "High"
	AssessmentMedium = "Medium"
	AssessmentLow    = "Low"
)

// Analysis is the structured outcome of requirement analysis for one
// opportunity, whether produced by the model or by the heuristic path.
type Analysis struct {
	MissingRequirements []string
	Recommendations     []string
	RequiredDocuments   []string
	RequiredAttachments []string
	Assessment          string
}

const (
	analysisSystemPrompt = "You are an expert government contracting advisor helping companies assess bid opportunities."

	analysisMaxTokens   = 1000
	analysisTemperature = 0.3

	profileExcerptLimit = 2000

	minAnalysisTimeout = 5 * time.Second
)

var sectionLabels = []string{
	"MISSING_REQUIREMENTS",
	"RECOMMENDATIONS",
	"REQUIRED_DOCUMENTS",
	"REQUIRED_ATTACHMENTS",
	"ASSESSMENT",
}

// buildAnalysisPrompt renders the per-opportunity user prompt. The
// profile excerpt is clipped so long document sets stay within the
// completion context.
func buildAnalysisPrompt(opp models.BidOpportunity, profileText string) string {
	if len(profileText) > profileExcerptLimit {
		profileText = profileText[:profileExcerptLimit]
	}

	due := "Not specified"
	if opp.DueDate != nil {
		due = opp.DueDate.Format("2006-01-02")
	}
	naics := "Not specified"
	if len(opp.NaicsCodes) > 0 {
		naics = strings.Join(opp.NaicsCodes, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this bid opportunity against the company profile and identify gaps.\n\n")
	fmt.Fprintf(&b, "OPPORTUNITY:\nTitle: %s\nAgency: %s\nDescription: %s\nDue Date: %s\nNAICS Codes: %s\n\n",
		opp.Title, opp.Agency, opp.Description, due, naics)
	fmt.Fprintf(&b, "COMPANY PROFILE:\n%s\n\n", profileText)
	b.WriteString(`Respond using exactly these labeled sections:
MISSING_REQUIREMENTS: requirements the company does not clearly meet, comma separated
RECOMMENDATIONS: concrete actions to strengthen the bid, comma separated
REQUIRED_DOCUMENTS: documents the solicitation asks for, comma separated
REQUIRED_ATTACHMENTS: attachments or forms to include, comma separated
ASSESSMENT: High, Medium, or Low likelihood of a competitive bid`)
	return b.String()
}

// parseAnalysis extracts the labeled sections from a completion. Each
// section body runs from its label to the next known label or end of
// text. Missing sections yield empty slices; a missing or unrecognized
// assessment defaults to Medium.
func parseAnalysis(text string) Analysis {
	sections := make(map[string]string, len(sectionLabels))
	upper := strings.ToUpper(text)
	for _, label := range sectionLabels {
		start := strings.Index(upper, label)
		if start < 0 {
			continue
		}
		body := text[start+len(label):]
		bodyUpper := upper[start+len(label):]
		end := len(body)
		for _, other := range sectionLabels {
			if other == label {
				continue
			}
			if idx := strings.Index(bodyUpper, other); idx >= 0 && idx < end {
				end = idx
			}
		}
		sections[label] = strings.TrimPrefix(strings.TrimSpace(body[:end]), ":")
	}

	a := Analysis{
		MissingRequirements: splitAnalysisItems(sections["MISSING_REQUIREMENTS"]),
		Recommendations:     splitAnalysisItems(sections["RECOMMENDATIONS"]),
		RequiredDocuments:   splitAnalysisItems(sections["REQUIRED_DOCUMENTS"]),
		RequiredAttachments: splitAnalysisItems(sections["REQUIRED_ATTACHMENTS"]),
		Assessment:          AssessmentMedium,
	}

	switch level := strings.ToLower(sections["ASSESSMENT"]); {
	case strings.Contains(level, "high"):
		a.Assessment = AssessmentHigh
	case strings.Contains(level, "low"):
		a.Assessment = AssessmentLow
	case strings.Contains(level, "medium"):
		a.Assessment = AssessmentMedium
	}
	return a
}

// splitAnalysisItems splits a section body on newlines and commas,
// stripping bullet markers and dropping empties.
func splitAnalysisItems(body string) []string {
	if body == "" {
		return nil
	}
	var items []string
	for _, line := range strings.FieldsFunc(body, func(r rune) bool {
		return r == '\n' || r == ','
	}) {
		item := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•* \t"))
		item = strings.TrimSuffix(item, ":")
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// heuristicAnalysis estimates the assessment from the cheap signals
// alone, used when the model path is disabled or out of budget.
func heuristicAnalysis(similarity, keywordScore float64) Analysis {
	pre := 0.5*similarity + 0.5*keywordScore
	assessment := AssessmentLow
	switch {
	case pre >= 0.7:
		assessment = AssessmentHigh
	case pre >= 0.5:
		assessment = AssessmentMedium
	}
	return Analysis{
		Recommendations: []string{
			"Heuristic assessment used (quick match mode) - consider running full AI analysis for top results",
		},
		Assessment: assessment,
	}
}

// fallbackAnalysis is the neutral result used when a model call fails.
func fallbackAnalysis() Analysis {
	return Analysis{
		Recommendations: []string{"AI analysis unavailable - manual review recommended"},
		Assessment:      AssessmentMedium,
	}
}

// analyzeRequirements runs one completion for the opportunity. The call
// deadline is the remaining batch budget, floored at minAnalysisTimeout
// so near-exhausted budgets still get a usable request window.
func analyzeRequirements(ctx context.Context, backend ai.Analyzer, opp models.BidOpportunity, profileText string, remaining time.Duration) (Analysis, error) {
	timeout := remaining
	if timeout < minAnalysisTimeout {
		timeout = minAnalysisTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := backend.Complete(ctx, analysisSystemPrompt, buildAnalysisPrompt(opp, profileText), analysisMaxTokens, analysisTemperature)
	if err != nil {
		return Analysis{}, fmt.Errorf("requirement analysis for %q: %w", opp.OpportunityID, err)
	}
	return parseAnalysis(resp), nil
}

package models

// CompanyProfile is the aggregated capability description built from a
// document-processing run. It is read-only for the duration of a matching
// batch; rebuilding it invalidates any cached vector space held by the
// matcher.
type CompanyProfile struct {
	CompanyName       string   `json:"company_name"`
	AllContent        string   `json:"all_content"`
	TechnicalKeywords []string `json:"technical_keywords"`
	DocumentCount     int      `json:"document_count"`
}

// MatchResult is the outcome of scoring one opportunity against the
// company profile. Results are never mutated after construction.
type MatchResult struct {
	Opportunity         BidOpportunity `json:"opportunity"`
	MatchScore          float64        `json:"match_score"`
	Confidence          string         `json:"confidence"`
	MatchingKeywords    []string       `json:"matching_keywords"`
	MissingRequirements []string       `json:"missing_requirements"`
	Recommendations     []string       `json:"recommendations"`
	RequiredDocuments   []string       `json:"required_documents"`
	RequiredAttachments []string       `json:"required_attachments"`
	ShouldApply         bool           `json:"should_apply"`
}

package profile

import (
	"strings"

	"github.com/keith/bid-finder/internal/models"
)

// Build aggregates processed documents into one capability profile. The
// company name prefers a document whose filename marks it as the
// profile document, otherwise the first document that names one.
func Build(docs []ProcessedDocument) *models.CompanyProfile {
	p := &models.CompanyProfile{DocumentCount: len(docs)}

	var content strings.Builder
	var keywords []string
	for _, doc := range docs {
		content.WriteString(doc.Content)
		content.WriteString("\n")

		if doc.CompanyName != "" {
			if p.CompanyName == "" || strings.Contains(strings.ToLower(doc.Filename), "company_profile") {
				p.CompanyName = doc.CompanyName
			}
		}
		keywords = mergeUniqueFold(keywords, doc.ExtractedKeywords)
	}

	p.AllContent = content.String()
	p.TechnicalKeywords = keywords
	return p
}

// mergeUniqueFold appends items not already present, comparing
// case-insensitively and preserving first-seen order.
func mergeUniqueFold(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, item := range base {
		seen[strings.ToLower(item)] = true
	}
	for _, item := range extra {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lower := strings.ToLower(item)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		base = append(base, item)
	}
	return base
}

package match

import "strings"

// MatchKeywords checks each profile keyword for a case-insensitive
// substring hit in the opportunity text and returns the matched ratio
// alongside the matched keywords in their original order. Profiles with
// no keywords score 0 with no matches.
func MatchKeywords(keywords []string, text string) (float64, []string) {
	if len(keywords) == 0 {
		return 0.0, nil
	}

	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return float64(len(matched)) / float64(len(keywords)), matched
}

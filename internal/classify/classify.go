// Package classify holds the stateless predicates used to tag and filter
// opportunity records independently of match scoring.
package classify

import (
	"os"
	"strings"

	"github.com/keith/bid-finder/internal/models"
)

const defaultBaseRegion = "Kampala, Uganda"

var itKeywords = []string{
	"information technology", "it services", "software development",
	"system administration", "network administration", "database management",
	"cloud services", "digital transformation", "it consulting",
}

var cybersecurityKeywords = []string{
	"cybersecurity", "information security", "cyber security",
	"security assessment", "penetration testing", "vulnerability assessment",
	"security monitoring", "incident response", "security consulting",
	"compliance", "risk assessment", "security operations center",
}

// itSynonyms widens the relevance net beyond the search keyword lists,
// catching postings that name the discipline rather than the service.
var itSynonyms = []string{
	"ict", "software engineer", "developer", "devops", "sysadmin",
	"network engineer", "data engineer", "data analyst", "database",
	"helpdesk", "help desk", "technical support", "web developer",
	"cloud", "infrastructure", "programmer", "full stack", "backend",
	"frontend", "machine learning", "artificial intelligence",
}

var governmentSources = []string{
	"samgov", "sam.gov", "fbo", "grants.gov", "usaspending",
	"egp", "ungm", "undp", "newvision tenders", "united nations",
}

var governmentAgencyTerms = []string{
	"ministry", "department", "federal", "municipal", "public",
	"authority", "commission", "united nations", "undp", "unicef",
	"unops", "government", "agency", "council", "bureau", "secretariat",
}

var procurementTerms = []string{
	"rfp", "rfq", "rfi", "eoi", "ifb", "tender", "solicitation",
	"procurement notice", "framework agreement", "bid notice",
	"invitation to bid", "expression of interest", "request for proposal",
	"request for quotation",
}

var jobBoardSources = []string{
	"remotive", "remoteok", "upwork", "brightermonday", "linkedin", "indeed",
}

var jobTerms = []string{
	"job", "vacancy", "hiring", "career", "position", "employment",
	"recruit", "salary", "apply now",
}

var remoteTerms = []string{
	"remote", "work from home", "telecommute", "distributed team", "anywhere",
}

// knownCities lists lowercase match terms with display names for
// location inference, first match wins. Ugandan and East African cities
// first, then the common international hubs the job boards surface.
var knownCities = []struct {
	term    string
	display string
}{
	{"kampala", "Kampala, Uganda"},
	{"entebbe", "Entebbe, Uganda"},
	{"jinja", "Jinja, Uganda"},
	{"gulu", "Gulu, Uganda"},
	{"mbarara", "Mbarara, Uganda"},
	{"nairobi", "Nairobi, Kenya"},
	{"dar es salaam", "Dar es Salaam, Tanzania"},
	{"kigali", "Kigali, Rwanda"},
	{"london", "London, UK"},
	{"new york", "New York, USA"},
	{"washington", "Washington, DC, USA"},
}

func text(opp models.BidOpportunity) string {
	return strings.ToLower(opp.Title + " " + opp.Description)
}

// IsITRelevant reports whether the record looks like IT/ICT work, either
// by a term hit in its text or by one of its attached keywords matching
// the same lists.
func IsITRelevant(opp models.BidOpportunity) bool {
	t := text(opp)
	for _, list := range [][]string{itKeywords, cybersecurityKeywords, itSynonyms} {
		for _, term := range list {
			if strings.Contains(t, term) {
				return true
			}
		}
	}
	for _, kw := range opp.Keywords {
		lower := strings.ToLower(kw)
		if lower == "" {
			continue
		}
		for _, list := range [][]string{itKeywords, cybersecurityKeywords, itSynonyms} {
			for _, term := range list {
				if strings.Contains(lower, term) {
					return true
				}
			}
		}
	}
	return false
}

// IsGovernmentBid reports whether the record is a government procurement
// notice: a government source, a government-indicator agency, or
// procurement-instrument language in the text.
func IsGovernmentBid(opp models.BidOpportunity) bool {
	source := strings.ReplaceAll(strings.ToLower(opp.Source), " ", "")
	for _, token := range governmentSources {
		if strings.Contains(source, strings.ReplaceAll(token, " ", "")) {
			return true
		}
	}
	agency := strings.ToLower(opp.Agency)
	for _, term := range governmentAgencyTerms {
		if strings.Contains(agency, term) {
			return true
		}
	}
	t := text(opp)
	for _, term := range procurementTerms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

// IsJobPosting reports whether the record is an employment posting.
// Government classification takes priority; the two are mutually
// exclusive.
func IsJobPosting(opp models.BidOpportunity) bool {
	if IsGovernmentBid(opp) {
		return false
	}
	source := strings.ToLower(opp.Source)
	for _, token := range jobBoardSources {
		if strings.Contains(source, token) {
			return true
		}
	}
	t := text(opp)
	for _, term := range jobTerms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}

// InferLocation derives a display location from the record's text,
// falling back to the configured base region (BASE_REGION env var) when
// no city is named. Remote-work language appends a remote qualifier.
func InferLocation(opp models.BidOpportunity) string {
	t := text(opp)
	location := ""
	for _, city := range knownCities {
		if strings.Contains(t, city.term) {
			location = city.display
			break
		}
	}
	if location == "" {
		location = baseRegion()
	}
	for _, term := range remoteTerms {
		if strings.Contains(t, term) {
			return location + " (Remote)"
		}
	}
	return location
}

func baseRegion() string {
	if region := os.Getenv("BASE_REGION"); region != "" {
		return region
	}
	return defaultBaseRegion
}

// Dedupe keeps the first record seen for each opportunity id, preserving
// order.
func Dedupe(opps []models.BidOpportunity) []models.BidOpportunity {
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

// FilterRelevant keeps records whose text contains at least one target
// keyword and overwrites each kept record's Keywords field with the
// matched subset.
func FilterRelevant(opps []models.BidOpportunity, targetKeywords []string) []models.BidOpportunity {
	relevant := make([]models.BidOpportunity, 0, len(opps))
	for _, opp := range opps {
		t := text(opp)
		var matched []string
		for _, kw := range targetKeywords {
			if kw != "" && strings.Contains(t, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		opp.Keywords = matched
		relevant = append(relevant, opp)
	}
	return relevant
}

// SearchKeywords returns the combined IT and cybersecurity keyword lists
// used as the default relevance target.
func SearchKeywords() []string {
	combined := make([]string, 0, len(itKeywords)+len(cybersecurityKeywords))
	combined = append(combined, itKeywords...)
	combined = append(combined, cybersecurityKeywords...)
	return combined
}

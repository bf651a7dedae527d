package models

import (
	"time"
)

// BidOpportunity is the normalized unit produced by any source collector.
// Records are immutable once a collector returns them, with one exception:
// the relevance filter may overwrite Keywords with the subset that
// triggered inclusion.
type BidOpportunity struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Agency         string     `json:"agency"`
	OpportunityID  string     `json:"opportunity_id"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedValue *float64   `json:"estimated_value"`
	NaicsCodes     []string   `json:"naics_codes"`
	Keywords       []string   `json:"keywords"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
}

// Text returns the searchable text of an opportunity (title + description).
func (o BidOpportunity) Text() string {
	return o.Title + " " + o.Description
}

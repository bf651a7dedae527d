package classify

import (
	"reflect"
	"testing"

	"github.com/keith/bid-finder/internal/models"
)

func opp(title, desc string) models.BidOpportunity {
	return models.BidOpportunity{Title: title, Description: desc}
}

func TestIsITRelevant(t *testing.T) {
	tests := []struct {
		name string
		opp  models.BidOpportunity
		want bool
	}{
		{"baker excluded", opp("Senior Baker", "bake bread"), false},
		{"network engineer included", opp("Network Engineer", "maintain routers"), true},
		{"cybersecurity term", opp("Consultancy", "penetration testing of web portal"), true},
		{"synonym hit", opp("ICT Support Specialist", "desktop support"), true},
		{"keyword field hit", models.BidOpportunity{Title: "Services", Description: "general", Keywords: []string{"cloud services"}}, true},
		{"irrelevant keyword field", models.BidOpportunity{Title: "Catering", Description: "food", Keywords: []string{"pastry"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsITRelevant(tt.opp); got != tt.want {
				t.Errorf("IsITRelevant = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsGovernmentBid(t *testing.T) {
	tests := []struct {
		name string
		opp  models.BidOpportunity
		want bool
	}{
		{"samgov source", models.BidOpportunity{Title: "Software job", Source: "SAMGov"}, true},
		{"ministry agency", models.BidOpportunity{Title: "Network upgrade", Agency: "Ministry of Health Uganda"}, true},
		{"tender in text", opp("Government Tender: Network Upgrade", "supply and install"), true},
		{"rfp in text", opp("RFP for SOC services", "24/7 monitoring"), true},
		{"plain job", models.BidOpportunity{Title: "Backend Developer", Description: "build APIs", Agency: "Acme Ltd", Source: "Remotive"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGovernmentBid(tt.opp); got != tt.want {
				t.Errorf("IsGovernmentBid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGovernmentTakesPriorityOverJob(t *testing.T) {
	record := models.BidOpportunity{
		Title:       "Network job opening",
		Description: "hiring now",
		Source:      "SAMGov",
	}
	if !IsGovernmentBid(record) {
		t.Fatal("SAMGov record not classified as government")
	}
	if IsJobPosting(record) {
		t.Error("government record also classified as job posting")
	}
}

func TestIsJobPosting(t *testing.T) {
	tests := []struct {
		name string
		opp  models.BidOpportunity
		want bool
	}{
		{"job board source", models.BidOpportunity{Title: "Go Developer", Description: "build services", Source: "Remotive (Remote Jobs)", Agency: "Startup"}, true},
		{"vacancy in text", models.BidOpportunity{Title: "Vacancy: Analyst", Description: "apply today", Agency: "Acme"}, true},
		{"neither", models.BidOpportunity{Title: "Printer supplies", Description: "toner cartridges", Agency: "Shop"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsJobPosting(tt.opp); got != tt.want {
				t.Errorf("IsJobPosting = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferLocation(t *testing.T) {
	tests := []struct {
		name string
		opp  models.BidOpportunity
		want string
	}{
		{"city in text", opp("ICT Support Specialist (Kampala)", "on-site support"), "Kampala, Uganda"},
		{"city plus remote", opp("ICT Support Specialist (Kampala, Remote-First)", "hybrid"), "Kampala, Uganda (Remote)"},
		{"no signal defaults to base region", opp("Network Upgrade", "supply and install"), "Kampala, Uganda"},
		{"remote only", opp("Go Developer", "fully remote role"), "Kampala, Uganda (Remote)"},
		{"foreign city", opp("Analyst", "based in Nairobi office"), "Nairobi, Kenya"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferLocation(tt.opp); got != tt.want {
				t.Errorf("InferLocation = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInferLocationBaseRegionOverride(t *testing.T) {
	t.Setenv("BASE_REGION", "Nairobi, Kenya")
	if got := InferLocation(opp("Network Upgrade", "supply and install")); got != "Nairobi, Kenya" {
		t.Errorf("InferLocation with BASE_REGION override = %q, want Nairobi, Kenya", got)
	}
}

func TestDedupe(t *testing.T) {
	a := models.BidOpportunity{OpportunityID: "A", Title: "first"}
	b := models.BidOpportunity{OpportunityID: "B"}
	aPrime := models.BidOpportunity{OpportunityID: "A", Title: "second"}

	got := Dedupe([]models.BidOpportunity{a, b, aPrime})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].OpportunityID != "A" || got[0].Title != "first" {
		t.Errorf("first-seen record not kept: %+v", got[0])
	}
	if got[1].OpportunityID != "B" {
		t.Errorf("order not preserved: %+v", got[1])
	}

	// Deduplicating an already-deduplicated list is a no-op.
	again := Dedupe(got)
	if !reflect.DeepEqual(again, got) {
		t.Error("dedupe of deduplicated list changed it")
	}
}

func TestFilterRelevant(t *testing.T) {
	opps := []models.BidOpportunity{
		{OpportunityID: "A", Title: "Cybersecurity Assessment", Description: "penetration testing required"},
		{OpportunityID: "B", Title: "Office Furniture", Description: "desks and chairs"},
		{OpportunityID: "C", Title: "Cloud Services Migration", Description: "lift and shift"},
	}
	got := FilterRelevant(opps, []string{"cybersecurity", "penetration testing", "cloud services"})
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].OpportunityID != "A" {
		t.Fatalf("unexpected first record %q", got[0].OpportunityID)
	}
	wantKeywords := []string{"cybersecurity", "penetration testing"}
	if !reflect.DeepEqual(got[0].Keywords, wantKeywords) {
		t.Errorf("Keywords = %v, want matched subset %v", got[0].Keywords, wantKeywords)
	}
	if !reflect.DeepEqual(got[1].Keywords, []string{"cloud services"}) {
		t.Errorf("Keywords = %v, want [cloud services]", got[1].Keywords)
	}
}

func TestSearchKeywords(t *testing.T) {
	kws := SearchKeywords()
	if len(kws) != len(itKeywords)+len(cybersecurityKeywords) {
		t.Errorf("SearchKeywords length = %d, want %d", len(kws), len(itKeywords)+len(cybersecurityKeywords))
	}
}

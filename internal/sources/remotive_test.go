package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRemotiveSearch(t *testing.T) {
	recent := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02T15:04:05")
	stale := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02T15:04:05")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jobs": []map[string]any{
				{
					"id":               101,
					"title":            "Senior Network Engineer",
					"description":      "<p>Design and run <b>network security</b> for a distributed team.</p>",
					"company_name":     "Acme Remote",
					"url":              "https://remotive.com/jobs/101",
					"publication_date": recent,
				},
				{
					"id":               102,
					"title":            "Old Posting",
					"description":      "network security role",
					"publication_date": stale,
				},
			},
		})
	}))
	defer srv.Close()

	src := NewRemotiveSource(SourceConfig{BaseURL: srv.URL}, zap.NewNop())
	got, err := src.Search(context.Background(), []string{"network security"}, 7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1 (stale posting dropped)", len(got))
	}

	opp := got[0]
	if opp.OpportunityID != "101" || opp.Agency != "Acme Remote" || opp.Source != "Remotive" {
		t.Errorf("record = %+v", opp)
	}
	if strings.Contains(opp.Description, "<") {
		t.Errorf("Description still contains markup: %q", opp.Description)
	}
	if !strings.Contains(opp.Description, "network security") {
		t.Errorf("Description lost text: %q", opp.Description)
	}
	if opp.DueDate == nil {
		t.Fatal("DueDate not set")
	}
}

func TestRemotiveKeywordCap(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]any{"jobs": []map[string]any{}})
	}))
	defer srv.Close()

	keywords := make([]string, 12)
	for i := range keywords {
		keywords[i] = "kw"
	}

	src := NewRemotiveSource(SourceConfig{BaseURL: srv.URL}, zap.NewNop())
	if _, err := src.Search(context.Background(), keywords, 7); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if requests != remotiveMaxKeywords {
		t.Errorf("requests = %d, want %d", requests, remotiveMaxKeywords)
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 10); got != "short" {
		t.Errorf("truncateText(short) = %q", got)
	}
	got := truncateText(strings.Repeat("a", 20), 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateText(long) = %q, want 10 chars ending in ellipsis", got)
	}
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText("<div><script>alert(1)</script><p>Secure   cloud</p> <b>services</b></div>")
	if got != "Secure cloud services" {
		t.Errorf("htmlToText = %q, want collapsed plain text", got)
	}
}

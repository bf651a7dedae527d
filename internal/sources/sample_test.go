package sources

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestSampleSourceKeywordFilter(t *testing.T) {
	src := NewSampleSource(zap.NewNop())

	all, err := src.Search(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("no sample opportunities")
	}

	filtered, err := src.Search(context.Background(), []string{"penetration testing"}, 7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(filtered) == 0 || len(filtered) >= len(all) {
		t.Fatalf("filtered = %d of %d, want a strict non-empty subset", len(filtered), len(all))
	}
	for _, opp := range filtered {
		if len(opp.Keywords) == 0 {
			t.Errorf("record %q missing matched keywords", opp.OpportunityID)
		}
	}
}

func TestUgandaSampleSource(t *testing.T) {
	src := NewUgandaSampleSource(zap.NewNop())
	got, err := src.Search(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for _, opp := range got {
		if opp.Source != "Uganda Sample" || opp.OpportunityID == "" || opp.DueDate == nil {
			t.Errorf("record = %+v", opp)
		}
	}
}

package enrich_test

import (
	"testing"
	"time"

	"gametrack/internal/enrich"
)

func TestAppendMessageJoinsWithSemicolons(t *testing.T) {
	var row enrich.Row
	row.AppendMessage("Steam price: not found.")
	row.AppendMessage("  ")
	row.AppendMessage("Critic score unresolved.")

	want := "Steam price: not found.; Critic score unresolved."
	if row.Message != want {
		t.Fatalf("unexpected message: got %q want %q", row.Message, want)
	}
}

func TestRowCloneDetachesPointers(t *testing.T) {
	price := 9.99
	appID := int64(620)
	row := enrich.Row{ID: "r1", Price: &price, AppID: &appID}

	clone := row.Clone()
	*clone.Price = 1
	*clone.AppID = 1

	if *row.Price != 9.99 || *row.AppID != 620 {
		t.Fatalf("clone shares pointers with original: %#v", row)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status     enrich.RowStatus
		unfinished bool
		terminal   bool
		eligible   bool
	}{
		{enrich.StatusPending, true, false, true},
		{enrich.StatusFetching, true, false, false},
		{enrich.StatusPaused, true, false, true},
		{enrich.StatusDone, false, true, false},
		{enrich.StatusSkipped, false, true, false},
		{enrich.StatusError, false, true, false},
	}
	for _, tc := range cases {
		if got := tc.status.Unfinished(); got != tc.unfinished {
			t.Fatalf("%s: Unfinished=%v want %v", tc.status, got, tc.unfinished)
		}
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Fatalf("%s: Terminal=%v want %v", tc.status, got, tc.terminal)
		}
		if got := tc.status.Eligible(); got != tc.eligible {
			t.Fatalf("%s: Eligible=%v want %v", tc.status, got, tc.eligible)
		}
	}
}

func TestSummaryCopiesResolvedFields(t *testing.T) {
	ttb := 12.5
	score := 88
	row := enrich.Row{ID: "r1", Title: "Celeste", TTB: &ttb, TTBSource: "hltb", CriticScore: &score}
	finished := time.UnixMilli(1_700_000_000_000).UTC()

	summary := row.Summary(finished)
	ttb = 1

	if summary.TTB == nil || *summary.TTB != 12.5 {
		t.Fatalf("summary TTB not detached: %#v", summary.TTB)
	}
	if summary.CriticScore == nil || *summary.CriticScore != 88 {
		t.Fatalf("unexpected critic score: %#v", summary.CriticScore)
	}
	if !summary.FinishedAt.Equal(finished) {
		t.Fatalf("unexpected finishedAt: %v", summary.FinishedAt)
	}
}

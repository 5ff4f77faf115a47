package api

import (
	"testing"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/store"
)

func TestFromResolvedFormatsTimestamp(t *testing.T) {
	score := 88
	meta := store.ResolvedMetadata{
		RowID:       "r1",
		Title:       "Hades",
		CriticScore: &score,
		UpdatedAt:   time.Date(2026, 4, 2, 9, 30, 0, 123456789, time.UTC),
	}
	dto := FromResolved(meta)
	if dto.UpdatedAt != "2026-04-02T09:30:00.123Z" {
		t.Fatalf("unexpected timestamp %q", dto.UpdatedAt)
	}
	if dto.CriticScore == nil || *dto.CriticScore != 88 || dto.RowID != "r1" {
		t.Fatalf("unexpected dto %#v", dto)
	}
	if got := FromResolved(store.ResolvedMetadata{RowID: "x"}); got.UpdatedAt != "" {
		t.Fatalf("expected empty timestamp for zero time, got %q", got.UpdatedAt)
	}
}

func TestStatusCountsIncludesEveryStatus(t *testing.T) {
	snap := enrich.Snapshot{Queue: []enrich.Row{
		{ID: "a", Status: enrich.StatusDone},
		{ID: "b", Status: enrich.StatusDone},
		{ID: "c", Status: enrich.StatusPending},
	}}
	counts := StatusCounts(snap)
	if counts["done"] != 2 || counts["pending"] != 1 || counts["error"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if len(counts) != len(enrich.AllStatuses()) {
		t.Fatalf("expected every status present, got %v", counts)
	}
}

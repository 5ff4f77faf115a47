package runner

import (
	"strings"
	"testing"

	"gametrack/internal/enrich"
)

func queueIDs(q *rowQueue) string {
	ids := make([]string, 0, q.Len())
	for _, row := range q.Rows() {
		ids = append(ids, row.ID)
	}
	return strings.Join(ids, ",")
}

func TestRowQueueRequeueMovesToBack(t *testing.T) {
	q := newRowQueue([]enrich.Row{
		{ID: "a", Status: enrich.StatusPending},
		{ID: "b", Status: enrich.StatusPending},
		{ID: "c", Status: enrich.StatusPending},
	})
	if !q.Requeue("a") {
		t.Fatal("expected requeue to succeed")
	}
	if got := queueIDs(q); got != "b,c,a" {
		t.Fatalf("unexpected order %q", got)
	}
	if q.Requeue("missing") {
		t.Fatal("requeue of unknown id should fail")
	}
}

func TestRowQueueNextEligible(t *testing.T) {
	q := newRowQueue([]enrich.Row{
		{ID: "a", Status: enrich.StatusDone},
		{ID: "b", Status: enrich.StatusFetching},
		{ID: "c", Status: enrich.StatusPaused},
		{ID: "d", Status: enrich.StatusPending},
	})
	if row := q.NextEligible(nil); row == nil || row.ID != "c" {
		t.Fatalf("expected paused row c first, got %+v", row)
	}
	skip := func(id string) bool { return id == "c" }
	if row := q.NextEligible(skip); row == nil || row.ID != "d" {
		t.Fatalf("expected d when c is active, got %+v", row)
	}
	q.Get("d").Status = enrich.StatusDone
	if row := q.NextEligible(skip); row != nil {
		t.Fatalf("expected nothing eligible, got %+v", row)
	}
}

func TestRowQueueDropsDuplicateIDs(t *testing.T) {
	q := newRowQueue([]enrich.Row{{ID: "a"}, {ID: "a"}, {ID: "b"}})
	if q.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", q.Len())
	}
}

func TestRowQueueStarted(t *testing.T) {
	q := newRowQueue([]enrich.Row{
		{ID: "a", Status: enrich.StatusPending, Stage: enrich.StageVendor},
		{ID: "b", Status: enrich.StatusSkipped, Stage: enrich.StageVendor},
	})
	if q.Started() {
		t.Fatal("pending and skipped rows do not count as started")
	}
	q.Get("a").Stage = enrich.StageFallback
	if !q.Started() {
		t.Fatal("a demoted row has started")
	}
}

func TestRowQueueRowsAreCopies(t *testing.T) {
	price := 10.0
	q := newRowQueue([]enrich.Row{{ID: "a", Price: &price}})
	rows := q.Rows()
	*rows[0].Price = 99
	if *q.Get("a").Price != 10 {
		t.Fatal("Rows must return deep copies")
	}
}

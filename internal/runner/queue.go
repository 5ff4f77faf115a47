package runner

import (
	"slices"

	"gametrack/internal/enrich"
)

// rowQueue is the logical processing order of a session. Rows are stored by
// pointer and mutated in place under the runner lock; order only changes
// through Requeue.
type rowQueue struct {
	order []string
	rows  map[string]*enrich.Row
}

func newRowQueue(rows []enrich.Row) *rowQueue {
	q := &rowQueue{
		order: make([]string, 0, len(rows)),
		rows:  make(map[string]*enrich.Row, len(rows)),
	}
	for _, row := range rows {
		if _, dup := q.rows[row.ID]; dup {
			continue
		}
		r := row.Clone()
		q.order = append(q.order, r.ID)
		q.rows[r.ID] = &r
	}
	return q
}

func (q *rowQueue) Len() int {
	return len(q.order)
}

func (q *rowQueue) Get(id string) *enrich.Row {
	return q.rows[id]
}

// Requeue moves id to the back of the queue.
func (q *rowQueue) Requeue(id string) bool {
	idx := slices.Index(q.order, id)
	if idx < 0 {
		return false
	}
	q.order = append(slices.Delete(q.order, idx, idx+1), id)
	return true
}

// NextEligible returns the earliest pending or paused row that skip rejects.
func (q *rowQueue) NextEligible(skip func(id string) bool) *enrich.Row {
	for _, id := range q.order {
		row := q.rows[id]
		if !row.Status.Eligible() {
			continue
		}
		if skip != nil && skip(id) {
			continue
		}
		return row
	}
	return nil
}

func (q *rowQueue) Unfinished() bool {
	for _, row := range q.rows {
		if row.Status.Unfinished() {
			return true
		}
	}
	return false
}

// Started reports whether any row has progressed past its initial state.
func (q *rowQueue) Started() bool {
	for _, row := range q.rows {
		switch {
		case row.Status == enrich.StatusSkipped:
		case row.Status != enrich.StatusPending:
			return true
		case row.Stage == enrich.StageFallback:
			return true
		}
	}
	return false
}

func (q *rowQueue) Count(status enrich.RowStatus) int {
	n := 0
	for _, row := range q.rows {
		if row.Status == status {
			n++
		}
	}
	return n
}

// Rows returns deep copies in queue order.
func (q *rowQueue) Rows() []enrich.Row {
	out := make([]enrich.Row, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.rows[id].Clone())
	}
	return out
}

func (q *rowQueue) Each(fn func(row *enrich.Row)) {
	for _, id := range q.order {
		fn(q.rows[id])
	}
}

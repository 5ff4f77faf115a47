package runner

import (
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
)

// scheduleLocked tops the active set up to the concurrency cap with the
// earliest eligible rows, then declares the session finished once nothing is
// left to run.
func (r *Runner) scheduleLocked(s *session) {
	if r.sess != s || s.finished || s.paused {
		return
	}
	for len(s.active) < r.concurrency {
		row := s.queue.NextEligible(s.isActive)
		if row == nil {
			break
		}
		r.claimLocked(s, row)
	}
	r.metrics.ActiveRows(len(s.active))
	if len(s.active) == 0 && !s.queue.Unfinished() {
		r.finishLocked(s, msgFinished)
	}
}

func (r *Runner) claimLocked(s *session, row *enrich.Row) {
	s.lease++
	lease := s.lease
	s.active[row.ID] = lease
	row.Status = enrich.StatusFetching
	r.touch(s, row)
	r.message = "Fetching " + row.Title
	r.requestActiveLocked(s)

	t := &task{
		r:      r,
		s:      s,
		ctx:    s.epoch,
		lease:  lease,
		row:    row.Clone(),
		region: s.region,
		logger: r.logger.With(
			logging.String(logging.FieldSessionID, s.id),
			logging.String(logging.FieldRowID, row.ID),
			logging.String(logging.FieldStage, string(row.Stage)),
		),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t.run()
	}()
}

// ownedRowLocked returns the live row if the caller still holds its lease.
func (r *Runner) ownedRowLocked(s *session, id string, lease uint64) (*enrich.Row, bool) {
	if r.sess != s || s.finished {
		return nil, false
	}
	if current, ok := s.active[id]; !ok || current != lease {
		return nil, false
	}
	row := s.queue.Get(id)
	return row, row != nil
}

// requestActiveLocked moves init to active once the dwell has elapsed,
// arming a timer for the remainder otherwise.
func (r *Runner) requestActiveLocked(s *session) {
	if s.phase != enrich.PhaseInit || s.paused {
		return
	}
	remaining := r.initDwell - time.Since(s.initStarted)
	if remaining <= 0 {
		stopTimer(s.activateTimer)
		s.activateTimer = nil
		s.phase = enrich.PhaseActive
		return
	}
	if s.activateTimer != nil {
		return
	}
	s.activateTimer = time.AfterFunc(remaining, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.sess != s || s.phase != enrich.PhaseInit || s.paused || s.finished {
			return
		}
		s.activateTimer = nil
		s.phase = enrich.PhaseActive
		r.publishLocked()
	})
}

// finishLocked marks s done, clears persistence, and arms the hold timer that
// returns the runner to idle.
func (r *Runner) finishLocked(s *session, message string) {
	s.finished = true
	s.phase = enrich.PhaseDone
	s.initStarted = time.Time{}
	stopTimer(s.activateTimer)
	s.activateTimer = nil
	s.stop()
	clear(s.active)
	r.message = message
	if now := r.stamp(); now.After(s.lastUpdated) {
		s.lastUpdated = now
	}

	r.logger.Info("enrichment session finished",
		logging.String(logging.FieldSessionID, s.id),
		logging.Int("rows", s.queue.Len()),
		logging.Int("done", s.queue.Count(enrich.StatusDone)),
		logging.Int("errors", s.queue.Count(enrich.StatusError)),
		logging.Int("skipped", s.queue.Count(enrich.StatusSkipped)),
	)
	snap := r.publishLocked()
	r.persist.clear()
	s.closeDone(snap)

	s.holdTimer = time.AfterFunc(r.doneHold, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.sess != s {
			return
		}
		r.sess = nil
		r.message = ""
		r.publishLocked()
	})
}

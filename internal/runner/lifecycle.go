package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
)

// StartOptions are per-session settings supplied by the caller.
type StartOptions struct {
	Region string
}

// Start replaces any existing session with a new one over inputs. When live
// providers are unavailable the session is created already finished with
// every row marked error.
func (r *Runner) Start(inputs []enrich.RowInput, opts StartOptions) (enrich.Snapshot, error) {
	if len(inputs) == 0 {
		return r.Snapshot(), ErrNoRows
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.buildLocked(), ErrClosed
	}
	r.dropLocked(false)

	now := r.stamp()
	region := strings.ToLower(strings.TrimSpace(opts.Region))
	if region == "" {
		region = strings.ToLower(r.defaultRegion)
	}
	s := &session{
		id:          r.newID(),
		startedAt:   now,
		lastUpdated: now,
		region:      region,
		queue:       newRowQueue(buildRows(inputs, now)),
		phase:       enrich.PhaseInit,
		active:      make(map[string]uint64),
		done:        make(chan struct{}),
	}
	s.epoch, s.stop = context.WithCancel(r.ctx)
	r.sess = s
	logger := r.logger.With(logging.String(logging.FieldSessionID, s.id))

	if !r.providers.Available() {
		r.failUnavailableLocked(s, now)
		logging.WarnWithContext(logger, "live providers unavailable; session closed", "providers_unavailable",
			logging.Int("rows", s.queue.Len()),
			logging.String(logging.FieldErrorHint, "configure bridge.url or set GAMETRACK_BRIDGE_URL"),
			logging.String(logging.FieldImpact, "no rows were enriched"),
		)
		return s.final, nil
	}

	s.initStarted = time.Now()
	r.message = ""
	logger.Info("enrichment session started",
		logging.Int("rows", s.queue.Len()),
		logging.String("region", s.region),
		logging.Int("concurrency", r.concurrency),
	)
	r.scheduleLocked(s)
	return r.publishLocked(), nil
}

// failUnavailableLocked closes s immediately with every row in error.
func (r *Runner) failUnavailableLocked(s *session, now time.Time) {
	s.queue.Each(func(row *enrich.Row) {
		if row.Status.Terminal() {
			return
		}
		row.Status = enrich.StatusError
		row.AppendMessage("Live enrichment unavailable.")
		row.UpdatedAt = now
		r.metrics.RowFinished(enrich.StatusError)
	})
	s.paused = true
	r.finishLocked(s, msgUnavailable)
}

// Pause stops scheduling and unwinds in-flight rows to paused. Rows keep every
// field already resolved. Safe to call without a session.
func (r *Runner) Pause() enrich.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sess
	if s == nil || s.finished || s.paused {
		return r.buildLocked()
	}
	r.pauseLocked(s, msgPaused)
	r.logger.Info("enrichment paused", logging.String(logging.FieldSessionID, s.id))
	return r.publishLocked()
}

func (r *Runner) pauseLocked(s *session, message string) {
	s.paused = true
	s.phase = enrich.PhasePaused
	stopTimer(s.activateTimer)
	s.activateTimer = nil
	s.stop()
	for id := range s.active {
		if row := s.queue.Get(id); row != nil && row.Status == enrich.StatusFetching {
			row.Status = enrich.StatusPaused
			r.touch(s, row)
		}
		delete(s.active, id)
	}
	r.metrics.ActiveRows(0)
	r.message = message
}

// Resume restarts scheduling of a paused session. It is a no-op without a
// session or when live providers are unavailable.
func (r *Runner) Resume() enrich.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sess
	if s == nil || r.closed {
		return r.buildLocked()
	}
	if !r.providers.Available() {
		if r.message != msgNoResume {
			r.message = msgNoResume
			return r.publishLocked()
		}
		return r.buildLocked()
	}
	if s.finished || !s.paused {
		return r.buildLocked()
	}

	s.paused = false
	r.message = ""
	s.epoch, s.stop = context.WithCancel(r.ctx)
	if s.queue.Started() {
		s.phase = enrich.PhaseActive
	} else {
		s.phase = enrich.PhaseInit
		if s.initStarted.IsZero() {
			s.initStarted = time.Now()
		}
	}
	r.logger.Info("enrichment resumed", logging.String(logging.FieldSessionID, s.id))
	r.scheduleLocked(s)
	return r.publishLocked()
}

// Cancel drops the session and clears persistence. Safe to call repeatedly.
func (r *Runner) Cancel() enrich.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess == nil {
		return r.buildLocked()
	}
	id := r.sess.id
	r.dropLocked(true)
	r.logger.Info("enrichment cancelled", logging.String(logging.FieldSessionID, id))
	return r.publishLocked()
}

// dropLocked discards the current session. Persistence is cleared unless the
// session is about to be replaced.
func (r *Runner) dropLocked(clearPersist bool) {
	s := r.sess
	if s == nil {
		return
	}
	s.stop()
	stopTimer(s.activateTimer)
	stopTimer(s.holdTimer)
	clear(s.active)
	r.metrics.ActiveRows(0)
	r.sess = nil
	r.message = ""
	s.closeDone(r.buildLocked())
	if clearPersist {
		r.persist.clear()
	}
}

// Restore loads a persisted session. Rows interrupted mid-fetch come back
// paused and the session always requires an explicit Resume.
func (r *Runner) Restore(ctx context.Context) (enrich.Snapshot, error) {
	if r.persist.store == nil {
		return r.Snapshot(), nil
	}
	stored, err := r.persist.store.Load(ctx)
	if err != nil {
		return r.Snapshot(), fmt.Errorf("load session: %w", err)
	}
	if stored == nil {
		return r.Snapshot(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.buildLocked(), ErrClosed
	}
	if r.sess != nil {
		r.logger.Debug("session already open; persisted session ignored",
			logging.String(logging.FieldSessionID, stored.SessionID))
		return r.buildLocked(), nil
	}

	s := &session{
		id:          stored.SessionID,
		startedAt:   stored.StartedAt,
		lastUpdated: stored.LastUpdated,
		paused:      true,
		region:      stored.Region,
		queue:       newRowQueue(stored.Queue),
		recent:      append([]enrich.RowSummary(nil), stored.Recent...),
		phase:       enrich.PhasePaused,
		active:      make(map[string]uint64),
		done:        make(chan struct{}),
	}
	s.epoch, s.stop = context.WithCancel(r.ctx)
	s.queue.Each(func(row *enrich.Row) {
		if row.Status == enrich.StatusFetching {
			row.Status = enrich.StatusPaused
		}
	})
	r.sess = s

	if !s.queue.Unfinished() {
		r.finishLocked(s, msgFinished)
		return s.final, nil
	}
	r.message = msgReady
	r.logger.Info("enrichment session restored",
		logging.String(logging.FieldSessionID, s.id),
		logging.Int("rows", s.queue.Len()),
		logging.Int("completed", s.queue.Count(enrich.StatusDone)),
	)
	return r.publishLocked(), nil
}

// buildRows converts caller input into fresh rows. Rows without a title or app
// id and repeated ids are marked skipped and never scheduled.
func buildRows(inputs []enrich.RowInput, now time.Time) []enrich.Row {
	taken := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if id := strings.TrimSpace(in.ID); id != "" {
			taken[id] = true
		}
	}
	seen := make(map[string]bool, len(inputs))
	rows := make([]enrich.Row, 0, len(inputs))
	for i, in := range inputs {
		id := strings.TrimSpace(in.ID)
		duplicate := id != "" && seen[id]
		if id == "" || duplicate {
			id = freeRowID(id, i, taken)
			taken[id] = true
		} else {
			seen[id] = true
		}
		row := enrich.Row{
			ID:         id,
			IdentityID: in.IdentityID,
			Title:      strings.TrimSpace(in.Title),
			AppID:      in.AppID,
			Platform:   strings.TrimSpace(in.Platform),
			Status:     enrich.StatusPending,
			Stage:      enrich.StageVendor,
			UpdatedAt:  now,
		}
		switch {
		case duplicate:
			row.Status = enrich.StatusSkipped
			row.AppendMessage("Skipped: duplicate row id.")
		case row.Title == "" && row.AppID == nil:
			row.Status = enrich.StatusSkipped
			row.AppendMessage("Skipped: missing title.")
		}
		rows = append(rows, row.Clone())
	}
	return rows
}

// freeRowID derives an id for a blank or repeated input id that collides with
// no caller supplied id and no id handed out earlier.
func freeRowID(base string, index int, taken map[string]bool) string {
	id := fmt.Sprintf("%s#%d", base, index)
	for n := 1; taken[id]; n++ {
		id = fmt.Sprintf("%s#%d.%d", base, index, n)
	}
	return id
}

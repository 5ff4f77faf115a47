package runner

import (
	"context"
	"log/slog"

	"gametrack/internal/enrich"
	"gametrack/internal/logging"
	"gametrack/internal/provider"
	"gametrack/internal/retry"
)

const (
	sourceLocalPlaytime = "hltb-dataset"
	sourceCriticIndex   = "critic-index"

	msgQueuedFallback  = "Queued for fallback sources."
	msgPlaytimeMissing = "Playtime unresolved."
	msgCriticMissing   = "Critic score unresolved."
)

// task runs one claimed row through its current stage. It works on a private
// copy of the row and commits every change back through the runner lock.
type task struct {
	r      *Runner
	s      *session
	ctx    context.Context
	lease  uint64
	row    enrich.Row
	region string
	logger *slog.Logger
}

func (t *task) run() {
	var ok bool
	if t.row.Stage == enrich.StageFallback {
		ok = t.fallback()
	} else {
		ok = t.vendor()
	}
	if !ok {
		t.unwind()
	}
}

// vendor runs the cheap stage: store price, then the offline indexes. Rows
// still missing playtime or critic score are demoted to fallback.
func (t *task) vendor() bool {
	if !t.refreshIdentity() {
		return false
	}
	if !t.resolvePrice() {
		return false
	}
	if !t.lookupLocalPlaytime() {
		return false
	}
	if !t.lookupCriticIndex() {
		return false
	}
	if t.row.NeedsFallback() {
		t.release(func(row *enrich.Row) {
			row.Stage = enrich.StageFallback
			row.Status = enrich.StatusPending
			row.AppendMessage(msgQueuedFallback)
			t.s.queue.Requeue(row.ID)
			t.r.metrics.RowDemoted()
			t.logger.Debug("row queued for fallback sources",
				logging.Bool("ttb_missing", row.TTB == nil),
				logging.Bool("critic_missing", row.CriticScore == nil),
			)
		})
		return true
	}
	t.complete()
	return true
}

// fallback runs the live stage. Whatever stays unresolved is left empty and
// the row is completed regardless.
func (t *task) fallback() bool {
	if !t.resolveRemotePlaytime() {
		return false
	}
	if !t.estimatePlaytime() {
		return false
	}
	if !t.resolveRemoteCritic() {
		return false
	}
	if !t.estimateCriticScore() {
		return false
	}
	t.complete()
	return true
}

func (t *task) refreshIdentity() bool {
	if t.r.identity == nil || t.row.IdentityID == "" || t.row.Attempts != (enrich.Attempts{}) {
		return true
	}
	identity, err := t.r.identity.ResolveIdentity(t.ctx, t.row.IdentityID)
	if t.ctx.Err() != nil {
		return false
	}
	if err != nil {
		t.logger.Debug("identity refresh failed", logging.Error(err))
		return true
	}
	if identity == nil {
		return true
	}
	return t.commit(func(row *enrich.Row) {
		if identity.Title != "" {
			row.Title = identity.Title
		}
		if identity.AppID != nil {
			id := *identity.AppID
			row.AppID = &id
		}
		if identity.Platform != "" {
			row.Platform = identity.Platform
		}
	})
}

func (t *task) resolvePrice() bool {
	if t.row.Checked.Price {
		return true
	}
	fetcher := t.r.providers.Price
	if t.row.AppID == nil || fetcher == nil || t.row.Price != nil {
		return t.commit(func(row *enrich.Row) { row.Checked.Price = true })
	}
	appID := *t.row.AppID
	out := callProvider(t, provider.ClassPrice, func(ctx context.Context) (*provider.PriceQuote, error) {
		return fetcher.FetchPrice(ctx, appID, t.region)
	})
	if out.Status == retry.StatusPaused {
		return false
	}
	resolved := out.OK() && out.Value != nil
	if !t.commit(func(row *enrich.Row) {
		row.Checked.Price = true
		if resolved {
			price := out.Value.Price
			row.Price = &price
			row.CurrencyCode = out.Value.Currency
			return
		}
		row.AppendMessage(failureMessage(provider.ClassPrice, out.Status, out.Attempts, t.r.policy.MaxAttempts))
	}) {
		return false
	}
	if resolved && t.r.sink != nil {
		t.sinkWrite("price", t.r.sink.ApplyPrice)
	}
	return true
}

func (t *task) lookupLocalPlaytime() bool {
	if t.row.Checked.LocalPlaytime {
		return true
	}
	var hours float64
	found := false
	if idx := t.r.providers.LocalPlaytime; idx != nil && t.row.TTB == nil {
		hours, found = idx.LookupPlaytime(t.row.Title, t.row.Platform)
		found = found && hours > 0
	}
	if !t.commit(func(row *enrich.Row) {
		row.Checked.LocalPlaytime = true
		if found {
			row.TTB = &hours
			row.TTBSource = sourceLocalPlaytime
		}
	}) {
		return false
	}
	if found && t.r.sink != nil {
		t.sinkWrite("playtime", t.r.sink.ApplyPlaytime)
	}
	return true
}

func (t *task) lookupCriticIndex() bool {
	if t.row.Checked.CriticIndex {
		return true
	}
	var score int
	found := false
	if idx := t.r.providers.CriticIndex; idx != nil && t.row.CriticScore == nil {
		score, found = idx.LookupCriticScore(t.row.Title, t.row.Platform)
	}
	if !t.commit(func(row *enrich.Row) {
		row.Checked.CriticIndex = true
		if found {
			row.CriticScore = &score
			row.CriticSource = sourceCriticIndex
		}
	}) {
		return false
	}
	if found && t.r.sink != nil {
		t.sinkWrite("critic", t.r.sink.ApplyCriticScore)
	}
	return true
}

func (t *task) resolveRemotePlaytime() bool {
	fetcher := t.r.providers.RemotePlaytime
	if fetcher == nil {
		return t.resolvePlaytime(provider.ClassPlaytime, func(c *enrich.Checks) *bool { return &c.RemotePlaytime }, nil)
	}
	return t.resolvePlaytime(provider.ClassPlaytime,
		func(c *enrich.Checks) *bool { return &c.RemotePlaytime },
		fetcher.FetchPlaytime)
}

func (t *task) estimatePlaytime() bool {
	est := t.r.providers.Estimator
	if est == nil {
		return t.resolvePlaytime(provider.ClassCatalog, func(c *enrich.Checks) *bool { return &c.PlaytimeEstimate }, nil)
	}
	return t.resolvePlaytime(provider.ClassCatalog,
		func(c *enrich.Checks) *bool { return &c.PlaytimeEstimate },
		est.EstimatePlaytime)
}

func (t *task) resolveRemoteCritic() bool {
	fetcher := t.r.providers.RemoteCritic
	if fetcher == nil {
		return t.resolveCritic(provider.ClassCritic, func(c *enrich.Checks) *bool { return &c.RemoteCritic }, nil)
	}
	return t.resolveCritic(provider.ClassCritic,
		func(c *enrich.Checks) *bool { return &c.RemoteCritic },
		fetcher.FetchCriticScore)
}

func (t *task) estimateCriticScore() bool {
	est := t.r.providers.Estimator
	if est == nil {
		return t.resolveCritic(provider.ClassCatalog, func(c *enrich.Checks) *bool { return &c.CriticEstimate }, nil)
	}
	return t.resolveCritic(provider.ClassCatalog,
		func(c *enrich.Checks) *bool { return &c.CriticEstimate },
		est.EstimateCriticScore)
}

// resolvePlaytime runs one live playtime step. A nil fetch marks the step
// checked without a call.
func (t *task) resolvePlaytime(class provider.Class, flag func(*enrich.Checks) *bool, fetch func(context.Context, string) (*provider.Playtime, error)) bool {
	if *flag(&t.row.Checked) {
		return true
	}
	if fetch == nil || t.row.TTB != nil {
		return t.commit(func(row *enrich.Row) { *flag(&row.Checked) = true })
	}
	title := t.row.Title
	out := callProvider(t, class, func(ctx context.Context) (*provider.Playtime, error) {
		return fetch(ctx, title)
	})
	if out.Status == retry.StatusPaused {
		return false
	}
	resolved := out.OK() && out.Value != nil && out.Value.Hours > 0
	if !t.commit(func(row *enrich.Row) {
		*flag(&row.Checked) = true
		if resolved {
			hours := out.Value.Hours
			row.TTB = &hours
			row.TTBSource = out.Value.Source
			return
		}
		status := out.Status
		if status == retry.StatusOK {
			status = retry.StatusNotFound
		}
		row.AppendMessage(failureMessage(class, status, out.Attempts, t.r.policy.MaxAttempts))
	}) {
		return false
	}
	if resolved && t.r.sink != nil {
		t.sinkWrite("playtime", t.r.sink.ApplyPlaytime)
	}
	return true
}

// resolveCritic runs one live critic-score step.
func (t *task) resolveCritic(class provider.Class, flag func(*enrich.Checks) *bool, fetch func(context.Context, string) (*provider.CriticScore, error)) bool {
	if *flag(&t.row.Checked) {
		return true
	}
	if fetch == nil || t.row.CriticScore != nil {
		return t.commit(func(row *enrich.Row) { *flag(&row.Checked) = true })
	}
	title := t.row.Title
	out := callProvider(t, class, func(ctx context.Context) (*provider.CriticScore, error) {
		return fetch(ctx, title)
	})
	if out.Status == retry.StatusPaused {
		return false
	}
	resolved := out.OK() && out.Value != nil && out.Value.Score >= 0 && out.Value.Score <= 100
	if !t.commit(func(row *enrich.Row) {
		*flag(&row.Checked) = true
		if resolved {
			score := out.Value.Score
			row.CriticScore = &score
			row.CriticSource = out.Value.Source
			return
		}
		status := out.Status
		if status == retry.StatusOK {
			status = retry.StatusNotFound
		}
		row.AppendMessage(failureMessage(class, status, out.Attempts, t.r.policy.MaxAttempts))
	}) {
		return false
	}
	if resolved && t.r.sink != nil {
		t.sinkWrite("critic", t.r.sink.ApplyCriticScore)
	}
	return true
}

// callProvider wraps fn with the rate limiter gate and retry policy and counts
// every issued attempt on the row.
func callProvider[T any](t *task, class provider.Class, fn func(ctx context.Context) (T, error)) retry.Outcome[T] {
	policy := t.r.policy
	policy.Gate = func(ctx context.Context) error {
		return t.r.limiter.Wait(ctx, class)
	}
	policy.OnAttempt = func(attempt int) {
		t.r.metrics.ProviderAttempt(class)
		t.commit(func(row *enrich.Row) { bumpAttempts(&row.Attempts, class) })
	}
	out := retry.Do(t.ctx, policy, fn)
	t.r.metrics.ProviderOutcome(class, string(out.Status))

	attrs := []logging.Attr{
		logging.String(logging.FieldProvider, string(class)),
		logging.String("outcome", string(out.Status)),
		logging.Int(logging.FieldAttempt, out.Attempts),
	}
	switch out.Status {
	case retry.StatusFailed, retry.StatusUnavailable:
		attrs = append(attrs, logging.Error(out.Err))
		logging.WarnWithContext(t.logger, "provider call gave up", "provider_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "check bridge connectivity and provider status"))...)
	default:
		t.logger.Debug("provider call finished", logging.Args(attrs...)...)
	}
	return out
}

func bumpAttempts(a *enrich.Attempts, class provider.Class) {
	switch class {
	case provider.ClassPrice:
		a.Price++
	case provider.ClassPlaytime:
		a.Playtime++
	case provider.ClassCritic:
		a.Critic++
	case provider.ClassCatalog:
		a.Catalog++
	}
}

// failureMessage renders the row log entry for a call that produced no value.
func failureMessage(class provider.Class, status retry.Status, attempts, budget int) string {
	label := class.Label()
	switch status {
	case retry.StatusFailed:
		if attempts >= budget {
			return label + ": not found after retries."
		}
		return label + ": request failed."
	case retry.StatusUnavailable:
		return label + ": unavailable."
	default:
		return label + ": not found."
	}
}

// commit applies fn to the live row while the lease is held and publishes the
// change. It reports false when the row was taken away by pause or cancel.
func (t *task) commit(fn func(row *enrich.Row)) bool {
	r := t.r
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.ownedRowLocked(t.s, t.row.ID, t.lease)
	if !ok {
		return false
	}
	fn(row)
	r.touch(t.s, row)
	t.row = row.Clone()
	r.publishLocked()
	return true
}

// release applies fn, gives the slot back, and lets the scheduler top up.
func (t *task) release(fn func(row *enrich.Row)) {
	r := t.r
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.ownedRowLocked(t.s, t.row.ID, t.lease)
	if !ok {
		return
	}
	fn(row)
	r.touch(t.s, row)
	t.row = row.Clone()
	delete(t.s.active, row.ID)
	r.scheduleLocked(t.s)
	if !t.s.finished {
		r.publishLocked()
	}
}

func (t *task) complete() {
	t.release(func(row *enrich.Row) {
		if row.TTB == nil {
			row.AppendMessage(msgPlaytimeMissing)
		}
		if row.CriticScore == nil {
			row.AppendMessage(msgCriticMissing)
		}
		row.Status = enrich.StatusDone
		summary := row.Summary(t.r.stamp())
		recent := append([]enrich.RowSummary{summary}, t.s.recent...)
		if len(recent) > t.r.recentLimit {
			recent = recent[:t.r.recentLimit]
		}
		t.s.recent = recent
		t.r.metrics.RowFinished(enrich.StatusDone)
		t.logger.Info("row enriched",
			logging.Bool("price", row.Price != nil),
			logging.Bool("ttb", row.TTB != nil),
			logging.Bool("critic", row.CriticScore != nil),
		)
	})
}

// unwind returns a row that stopped mid-pipeline to paused, if it is still ours.
func (t *task) unwind() {
	t.release(func(row *enrich.Row) {
		if row.Status == enrich.StatusFetching {
			row.Status = enrich.StatusPaused
		}
	})
}

func (t *task) sinkWrite(field string, apply func(context.Context, enrich.Row) error) {
	if err := apply(t.r.ctx, t.row); err != nil {
		logging.WarnWithContext(t.logger, "library write failed", "library_write_failed",
			logging.String("field", field),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the library database"),
		)
	}
}

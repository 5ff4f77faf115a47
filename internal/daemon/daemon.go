package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"gametrack/internal/bridge"
	"gametrack/internal/config"
	"gametrack/internal/enrich"
	"gametrack/internal/logging"
	"gametrack/internal/metrics"
	"gametrack/internal/runner"
	"gametrack/internal/store"
)

var (
	_ bridge.Cache        = (*store.Store)(nil)
	_ runner.SessionStore = (*store.Store)(nil)
	_ runner.LibrarySink  = (*store.Store)(nil)
	_ runner.Metrics      = (*metrics.Collector)(nil)
)

// Dependencies are the collaborators a Daemon coordinates.
type Dependencies struct {
	Store   *store.Store
	Runner  *runner.Runner
	Metrics *metrics.Collector
	LogHub  *logging.StreamHub

	// BridgeAvailable is reported by Status.
	BridgeAvailable bool
}

// Daemon coordinates the enrichment runner and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	runner  *runner.Runner
	metrics *metrics.Collector
	logHub  *logging.StreamHub
	bridge  bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	stopped atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	DatabasePath    string
	LockFilePath    string
	BridgeAvailable bool
	Session         enrich.Snapshot
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Runner == nil {
		return nil, errors.New("daemon requires config, store, and runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		runner:   deps.Runner,
		metrics:  deps.Metrics,
		logHub:   deps.LogHub,
		bridge:   deps.BridgeAvailable,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and restores any persisted session. A
// stopped daemon cannot be started again.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped.Load() {
		return errors.New("daemon already stopped")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gametrack daemon instance is already running")
	}

	snap, err := d.runner.Restore(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "session restore failed", "session_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the database file to reset stored state"),
			logging.String(logging.FieldImpact, "the previous session is not resumable"),
		)
	} else if snap.SessionID != "" {
		d.logger.Info("persisted session available",
			logging.String(logging.FieldSessionID, snap.SessionID),
			logging.Int("rows", snap.TotalRows),
			logging.Int("completed", snap.CompletedCount),
		)
	}

	d.running.Store(true)
	d.logger.Info("gametrack daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("bridge_available", d.bridge),
	)
	return nil
}

// Stop pauses the runner, flushes its state, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopped.Store(true)
	if err := d.runner.Close(); err != nil {
		d.logger.Warn("runner close failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("gametrack daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	_ = d.runner.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information and the current session snapshot.
func (d *Daemon) Status(_ context.Context) Status {
	return Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		DatabasePath:    d.store.Path(),
		LockFilePath:    d.lockPath,
		BridgeAvailable: d.bridge,
		Session:         d.runner.Snapshot(),
	}
}

// Runner exposes the enrichment runner.
func (d *Daemon) Runner() *runner.Runner {
	return d.runner
}

// LogStream returns the in-memory log hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}
